package rest

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pedidohub/backoffice/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the inner handler so
// the outer middlewares can log and measure it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// routeTemplate returns the matched mux template ("/api/pedidos/{id}") so
// metric and span labels stay bounded. Falls back to the raw path when the
// request did not match a route.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return r.URL.Path
}

// requestIDMiddleware assigns a request ID when the client did not send one
// and echoes it back in the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware writes one structured line per served request.
func loggingMiddleware(logger *log.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      recorder.statusCode(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  r.Header.Get(requestIDHeader),
			}).Info("http request served")
		})
	}
}

// metricsMiddleware records the request counter and latency histogram.
func metricsMiddleware(httpMetrics *metrics.HTTPMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if httpMetrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			httpMetrics.Record(r.Method, routeTemplate(r), recorder.statusCode(), time.Since(start))
		})
	}
}

// tracingMiddleware opens one span per request, named after the route
// template.
func tracingMiddleware() mux.MiddlewareFunc {
	tracer := otel.Tracer("backoffice/rest")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeTemplate(r)
			ctx, span := tracer.Start(r.Context(), r.Method+" "+route)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", r.Header.Get(requestIDHeader)),
			)

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			status := recorder.statusCode()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

// recoveryMiddleware turns handler panics into the 500 envelope instead of
// tearing the connection down.
func recoveryMiddleware(logger *log.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.WithFields(log.Fields{
						"panic":      recovered,
						"method":     r.Method,
						"path":       r.URL.Path,
						"request_id": r.Header.Get(requestIDHeader),
						"stack":      string(debug.Stack()),
					}).Error("panic recovered in http handler")

					writeJSON(w, http.StatusInternalServerError, errorEnvelope{
						Success:   false,
						Message:   "internal error",
						Code:      "internal_error",
						Timestamp: time.Now().UTC(),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutMiddleware bounds request handling. Requests that exceed the limit
// get the 503 error envelope; the inner handler keeps running until its
// context is cancelled but its late writes are discarded.
func timeoutMiddleware(limit time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := json.Marshal(errorEnvelope{
				Success:   false,
				Message:   "request processing exceeded the time limit",
				Code:      "request_timeout",
				Timestamp: time.Now().UTC(),
			})
			if err != nil {
				body = []byte(`{"success":false,"code":"request_timeout"}`)
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			http.TimeoutHandler(next, limit, string(body)).ServeHTTP(w, r)
		})
	}
}
