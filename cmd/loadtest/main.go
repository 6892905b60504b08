// Command loadtest drives the back office HTTP API with synthetic orders and
// prints a latency/error report. The create mode exercises the synchronous
// order endpoint; the import mode pushes storefront payloads through the
// async pipeline and can poll the job ledger until each import settles.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultAmount = int64(1000)
	defaultQty    = int32(1)

	codeOK    = "200"
	codeError = "error"
)

type loadMode string

const (
	modeCreate loadMode = "create"
	modeImport loadMode = "import"
)

type config struct {
	baseURL      string
	total        int
	totalSet     bool
	duration     time.Duration
	concurrency  int
	timeout      time.Duration
	mode         loadMode
	customerID   string
	currency     string
	sku          string
	amountMinor  int64
	orderTag     string
	wait         bool
	pollInterval time.Duration
	pollTimeout  time.Duration
	outputPath   string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu      sync.Mutex
	methods map[string]*methodStats
}

func newCollector() *collector {
	return &collector{
		methods: make(map[string]*methodStats),
	}
}

// record registers one call. Codes starting with ok are counted as success,
// everything else as failure.
func (c *collector) record(method string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, found := c.methods[method]
	if !found {
		stats = &methodStats{
			codes: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) snapshot(name string) (methodReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[name]
	if !ok {
		return methodReport{}, false
	}

	codesCopy := make(map[string]int64, len(stats.codes))
	for code, count := range stats.codes {
		codesCopy[code] = count
	}

	return methodReport{
		Calls:     stats.calls,
		Success:   stats.success,
		Failed:    stats.failed,
		ErrorRate: ratio(stats.failed, stats.calls),
		Codes:     codesCopy,
		LatencyMs: buildLatencySummary(stats.latencies),
	}, true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	scenarioStats := c.methods["scenario"]
	if scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.methods {
		codesCopy := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codesCopy[code] = count
		}
		result.Methods[name] = methodReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codesCopy,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}

	return result
}

func parseConfig() (config, error) {
	var cfg config
	var modeValue string
	var timeoutValue string
	var durationValue string

	flag.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "API base URL")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | import")
	flag.StringVar(&cfg.customerID, "customer-id", "", "existing customer id used in payloads (required)")
	flag.StringVar(&cfg.currency, "currency", "EUR", "order currency")
	flag.StringVar(&cfg.sku, "sku", "SKU-LOAD", "order item SKU")
	flag.Int64Var(&cfg.amountMinor, "amount-minor", defaultAmount, "order item amount in minor units")
	flag.StringVar(&cfg.orderTag, "order-tag", "load", "storefront order id prefix")
	flag.BoolVar(&cfg.wait, "wait", false, "import mode: poll each job until it settles")
	flag.DurationVar(&cfg.pollInterval, "poll-interval", 200*time.Millisecond, "import mode: job poll interval")
	flag.DurationVar(&cfg.pollTimeout, "poll-timeout", 30*time.Second, "import mode: max time to wait for one job")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return cfg, errors.New("addr is required")
	}
	if !strings.HasPrefix(cfg.baseURL, "http://") && !strings.HasPrefix(cfg.baseURL, "https://") {
		cfg.baseURL = "http://" + cfg.baseURL
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.amountMinor <= 0 {
		return cfg, errors.New("amount-minor must be > 0")
	}
	if strings.TrimSpace(cfg.customerID) == "" {
		return cfg, errors.New("customer-id is required")
	}
	if strings.TrimSpace(cfg.currency) == "" {
		return cfg, errors.New("currency is required")
	}
	if strings.TrimSpace(cfg.sku) == "" {
		return cfg, errors.New("sku is required")
	}
	if strings.TrimSpace(cfg.orderTag) == "" {
		return cfg, errors.New("order-tag is required")
	}
	if cfg.wait {
		if cfg.pollInterval <= 0 {
			return cfg, errors.New("poll-interval must be > 0")
		}
		if cfg.pollTimeout <= 0 {
			return cfg, errors.New("poll-timeout must be > 0")
		}
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCreate:
		return modeCreate, nil
	case modeImport:
		return modeImport, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := newHTTPClient(cfg)

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if runErr := runScenario(client, cfg, id, runID, col); runErr != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func newHTTPClient(cfg config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.concurrency * 2
	transport.MaxIdleConnsPerHost = cfg.concurrency * 2

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.timeout,
	}
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// orderBody matches the order create/import request schema of the API.
type orderBody struct {
	ShopifyOrderID string          `json:"shopify_order_id"`
	CustomerID     string          `json:"customer_id"`
	Currency       string          `json:"currency"`
	TotalMinor     int64           `json:"total_minor"`
	ShippingMinor  int64           `json:"shipping_minor"`
	Items          []orderItemBody `json:"items"`
}

type orderItemBody struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

// apiEnvelope is the response wrapper every API endpoint uses.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type orderData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type importData struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type jobData struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	LastError string `json:"last_error"`
	OrderID   string `json:"order_id"`
}

func buildOrderBody(cfg config, index int, runID string) orderBody {
	return orderBody{
		ShopifyOrderID: fmt.Sprintf("%s-%s-%d", cfg.orderTag, runID, index),
		CustomerID:     cfg.customerID,
		Currency:       cfg.currency,
		TotalMinor:     cfg.amountMinor,
		Items: []orderItemBody{
			{
				SKU:        cfg.sku,
				Name:       "load test item",
				Qty:        defaultQty,
				PriceMinor: cfg.amountMinor,
			},
		},
	}
}

func runScenario(
	client *http.Client,
	cfg config,
	index int,
	runID string,
	col *collector,
) error {
	scenarioStart := time.Now()
	scenarioCode := codeOK
	scenarioOK := true
	defer func() {
		col.record("scenario", time.Since(scenarioStart), scenarioCode, scenarioOK)
	}()

	body := buildOrderBody(cfg, index, runID)

	if cfg.mode == modeCreate {
		_, code, err := callCreateOrder(client, cfg, body, col)
		if err != nil {
			scenarioCode = code
			scenarioOK = false
			return err
		}
		return nil
	}

	jobID, code, err := callImportOrder(client, cfg, body, col)
	if err != nil {
		scenarioCode = code
		scenarioOK = false
		return err
	}

	if !cfg.wait {
		return nil
	}

	if code, err := pollJob(client, cfg, jobID, col); err != nil {
		scenarioCode = code
		scenarioOK = false
		return err
	}

	return nil
}

func callCreateOrder(client *http.Client, cfg config, body orderBody, col *collector) (orderData, string, error) {
	start := time.Now()

	var order orderData
	code, err := postJSON(client, cfg.baseURL+"/api/pedidos", body, http.StatusCreated, &order)
	col.record("CreateOrder", time.Since(start), code, err == nil)
	if err != nil {
		return orderData{}, code, err
	}
	if order.ID == "" {
		return orderData{}, codeError, errors.New("create response returned empty order id")
	}
	return order, code, nil
}

func callImportOrder(client *http.Client, cfg config, body orderBody, col *collector) (string, string, error) {
	start := time.Now()

	var accepted importData
	code, err := postJSON(client, cfg.baseURL+"/api/pedidos/import", body, http.StatusAccepted, &accepted)
	col.record("ImportOrder", time.Since(start), code, err == nil)
	if err != nil {
		return "", code, err
	}
	if accepted.JobID == "" {
		return "", codeError, errors.New("import response returned empty job id")
	}
	return accepted.JobID, code, nil
}

// pollJob polls the job ledger until the job settles or the poll budget runs
// out. Each poll is recorded individually.
func pollJob(client *http.Client, cfg config, jobID string, col *collector) (string, error) {
	deadline := time.Now().Add(cfg.pollTimeout)
	jobURL := cfg.baseURL + "/api/jobs/" + jobID

	for {
		start := time.Now()
		var job jobData
		code, err := getJSON(client, jobURL, &job)
		col.record("PollJob", time.Since(start), code, err == nil)
		if err != nil {
			return code, err
		}

		switch job.Status {
		case "completed":
			return code, nil
		case "failed":
			return codeError, fmt.Errorf("job %s failed: %s", jobID, job.LastError)
		}

		if time.Now().After(deadline) {
			return codeError, fmt.Errorf("job %s did not settle within %s (status=%s progress=%d)",
				jobID, cfg.pollTimeout, job.Status, job.Progress)
		}
		time.Sleep(cfg.pollInterval)
	}
}

func postJSON(client *http.Client, url string, body any, wantStatus int, out any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return codeError, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return codeError, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doJSON(client, req, wantStatus, out)
}

func getJSON(client *http.Client, url string, out any) (string, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return codeError, fmt.Errorf("build request: %w", err)
	}
	return doJSON(client, req, http.StatusOK, out)
}

func doJSON(client *http.Client, req *http.Request, wantStatus int, out any) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return codeError, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	code := strconv.Itoa(resp.StatusCode)

	var envelope apiEnvelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil {
		return code, fmt.Errorf("decode response (%s): %w", code, decodeErr)
	}

	if resp.StatusCode != wantStatus || !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = "request failed"
		}
		return code, fmt.Errorf("%s %s: status=%s code=%s message=%s",
			req.Method, req.URL.Path, code, envelope.Code, message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if decodeErr := json.Unmarshal(envelope.Data, out); decodeErr != nil {
			return code, fmt.Errorf("decode data: %w", decodeErr)
		}
	}

	return code, nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
		)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
