package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "researchbot"

// Turn outcomes recorded by the shell.
const (
	OutcomeParsed       = "parsed"
	OutcomeParseError   = "parse_error"
	OutcomeRuntimeError = "runtime_error"
	OutcomeExit         = "exit"
)

// Recorder holds the collectors for one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	turns       *prometheus.CounterVec
	runtime     prometheus.Histogram
	toolCalls   *prometheus.CounterVec
	saves       *prometheus.CounterVec
	activeChats prometheus.Gauge
}

// New registers the collectors on reg. Passing prometheus.DefaultRegisterer
// exposes them through promhttp.Handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		runtime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "runtime_duration_seconds",
			Help:      "Time spent inside the agent runtime per turn.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and status.",
		}, []string{"tool", "status"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Archive writes by backend and status.",
		}, []string{"backend", "status"}),
		activeChats: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "web_sessions_active",
			Help:      "Web chat sessions issued a cookie and not yet ended.",
		}),
	}
}

func (r *Recorder) Turn(outcome string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RuntimeDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.runtime.Observe(d.Seconds())
}

func (r *Recorder) ToolCall(tool string, err error) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, status(err)).Inc()
}

func (r *Recorder) Save(backend string, err error) {
	if r == nil {
		return
	}
	r.saves.WithLabelValues(backend, status(err)).Inc()
}

func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.activeChats.Inc()
}

func (r *Recorder) SessionEnded() {
	if r == nil {
		return
	}
	r.activeChats.Dec()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
