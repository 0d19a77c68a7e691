package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// typeMetrics holds the request metrics of one message type
type typeMetrics struct {
	requests *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// requestMetrics is created once, request handling only looks the metrics up
var requestMetrics = func() map[common.MessageType]*typeMetrics {
	types := append([]common.MessageType{common.MsgTError, common.MsgTUnknown}, common.MessageTypes...)
	m := make(map[common.MessageType]*typeMetrics, len(types))
	for _, t := range types {
		m[t] = &typeMetrics{
			requests: metrics.GetOrCreateCounter(fmt.Sprintf(`versedb_requests_total{type=%q}`, t)),
			errors:   metrics.GetOrCreateCounter(fmt.Sprintf(`versedb_request_errors_total{type=%q}`, t)),
			duration: metrics.GetOrCreateHistogram(fmt.Sprintf(`versedb_request_duration_seconds{type=%q}`, t)),
		}
	}
	return m
}()

// observe records one handled request
func observe(t common.MessageType, failed bool, start time.Time) {
	m, ok := requestMetrics[t]
	if !ok {
		m = requestMetrics[common.MsgTUnknown]
	}
	m.requests.Inc()
	if failed {
		m.errors.Inc()
	}
	m.duration.UpdateDuration(start)
}

// ServeMetrics serves the metrics of this process in the Prometheus text format on
// endpoint under /metrics until ctx is done.
func ServeMetrics(ctx context.Context, endpoint string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", endpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}
