package base

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// activeSessions counts the live sessions of all server transports in this process
var activeSessions atomic.Int64

var (
	sessionsTotal      = metrics.NewCounter("versedb_sessions_total")
	framingErrorsTotal = metrics.NewCounter("versedb_framing_errors_total")
	_                  = metrics.NewGauge("versedb_sessions_active", func() float64 {
		return float64(activeSessions.Load())
	})
)

// ActiveSessions returns the number of live sessions of all server transports in this process.
func ActiveSessions() int64 {
	return activeSessions.Load()
}
