package backend

import (
	"fmt"
	"log"
	"os"

	"github.com/jo-hoe/gofeedback/internal/feedback"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultSuccess = "success"
	resultInvalid = "invalid"
	resultError   = "error"
)

// Metrics holds the collectors exposed on /metrics.
type Metrics struct {
	registry       *prometheus.Registry
	submissions    *prometheus.CounterVec
	uploads        prometheus.Counter
	logRecoveries  prometheus.Counter
	logEntries     prometheus.Gauge
	appendDuration prometheus.Histogram
}

func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Feedback submissions by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_uploads_total",
			Help: "Stored feedback images.",
		}),
		logRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_log_recoveries_total",
			Help: "Reads of a missing or damaged feedback log that were treated as empty.",
		}),
		logEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_log_entries",
			Help: "Number of entries in the feedback log at the last read.",
		}),
		appendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedback_append_duration_seconds",
			Help:    "Time spent storing one feedback record, including waiting for the append lock.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, collector := range []prometheus.Collector{m.submissions, m.uploads, m.logRecoveries, m.logEntries, m.appendDuration} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register feedback metrics: %w", err)
		}
	}

	return m, nil
}

// ObserveLogRead matches feedback.Options.OnLogRead.
func (m *Metrics) ObserveLogRead(contents feedback.LogContents) {
	if contents.State == feedback.LogRecovered {
		m.logRecoveries.Inc()
	}
	m.logEntries.Set(float64(len(contents.Entries)))
}

func (m *Metrics) observeSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
