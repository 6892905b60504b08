package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the metrics of the order processing pipeline.
type PipelineMetrics struct {
	jobsStarted   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter

	jobDuration  prometheus.Histogram
	stepDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// jobProgress mirrors the queue's per-job progress reporting as a gauge
	// of the job currently held by the single worker.
	jobProgress prometheus.Gauge
	activeJobs  prometheus.Gauge
}

// NewPipelineMetrics creates the pipeline metrics on the default registerer.
func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPipelineMetricsWithRegisterer(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &PipelineMetrics{
		jobsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_pipeline_jobs_started_total",
			Help: "Total number of pipeline jobs picked up",
		}),
		jobsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_pipeline_jobs_completed_total",
			Help: "Total number of pipeline jobs completed successfully",
		}),
		jobsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_pipeline_jobs_failed_total",
			Help: "Total number of pipeline jobs that returned an error",
		}),
		jobDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "backoffice_pipeline_job_duration_seconds",
			Help:    "Duration of whole pipeline runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "backoffice_pipeline_step_duration_seconds",
			Help:    "Duration of individual pipeline steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "backoffice_outbox_events_total",
			Help: "Total number of events handed to the outbox",
		}),
		jobProgress: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "backoffice_pipeline_job_progress_percent",
			Help: "Progress of the job currently being processed",
		}),
		activeJobs: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "backoffice_pipeline_active_jobs",
			Help: "Number of jobs currently being processed",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordJobStarted bumps the started counter and the in-flight gauge.
func (m *PipelineMetrics) RecordJobStarted() {
	m.jobsStarted.Inc()
	m.activeJobs.Inc()
	m.jobProgress.Set(0)
}

// RecordJobCompleted bumps the completed counter.
func (m *PipelineMetrics) RecordJobCompleted() {
	m.jobsCompleted.Inc()
}

// RecordJobFailed bumps the failed counter.
func (m *PipelineMetrics) RecordJobFailed() {
	m.jobsFailed.Inc()
}

// RecordJobFinished decrements the in-flight gauge.
func (m *PipelineMetrics) RecordJobFinished() {
	m.activeJobs.Dec()
}

// RecordJobDuration records the duration of a whole pipeline run.
func (m *PipelineMetrics) RecordJobDuration(duration time.Duration) {
	m.jobDuration.Observe(duration.Seconds())
}

// RecordStepDuration records the duration of one pipeline step.
func (m *PipelineMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordProgress mirrors the reported per-job progress.
func (m *PipelineMetrics) RecordProgress(percent int) {
	m.jobProgress.Set(float64(percent))
}

// RecordTimelineEvent bumps the timeline event counter.
func (m *PipelineMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent bumps the outbox event counter.
func (m *PipelineMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
