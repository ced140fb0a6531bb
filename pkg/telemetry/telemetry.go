// Package telemetry provides sinks for dashboard events: a zerolog logger,
// Prometheus counters and a fan-out.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-logdash/components/dashboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// NewZerolog builds a logger writing console or JSON lines at the given level.
func NewZerolog(out io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("telemetry: log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer
	switch format {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
		w = out
	default:
		return zerolog.Nop(), fmt.Errorf("telemetry: unknown log format %q", format)
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl), nil
}

// Logger records events as structured log lines.
type Logger struct {
	log zerolog.Logger
}

// NewLogger wraps log as a telemetry sink.
func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

// Record implements dashboard.Telemetry.
func (l *Logger) Record(_ context.Context, event string, payload map[string]any) {
	entry := l.log.WithLevel(levelFor(event)).Str("event", event)
	if len(payload) > 0 {
		entry = entry.Fields(payload)
	}
	entry.Msg("dashboard event")
}

func levelFor(event string) zerolog.Level {
	switch {
	case strings.HasSuffix(event, ".failed"),
		strings.HasSuffix(event, ".error"),
		strings.HasSuffix(event, ".rejected"),
		strings.HasSuffix(event, ".stale"):
		return zerolog.WarnLevel
	case strings.HasSuffix(event, ".gate_closed"):
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Metrics counts events per name and report, and times report fetches.
type Metrics struct {
	Events      *prometheus.CounterVec
	FetchTiming *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logdash_events_total",
				Help: "Dashboard events by name and report",
			},
			[]string{"event", "report"},
		),
		FetchTiming: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "logdash_report_fetch_seconds",
				Help:    "Duration of successful report fetches",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"report"},
		),
	}
}

// Record implements dashboard.Telemetry.
func (m *Metrics) Record(_ context.Context, event string, payload map[string]any) {
	report, _ := payload["report"].(string)
	m.Events.WithLabelValues(event, report).Inc()
	if ms, ok := payload["duration_ms"].(int64); ok && report != "" {
		m.FetchTiming.WithLabelValues(report).Observe(float64(ms) / 1000)
	}
}

// Multi fans an event out to every sink.
type Multi []dashboard.Telemetry

// Record implements dashboard.Telemetry.
func (m Multi) Record(ctx context.Context, event string, payload map[string]any) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(ctx, event, payload)
		}
	}
}
