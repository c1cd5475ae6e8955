// Package metrics provides Prometheus instruments for the transition engine.
//
// Labels are limited to state names and outcome codes; case ids never become
// labels.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeCommitted labels a transition that was written.
const OutcomeCommitted = "committed"

// Recorder holds the engine instruments.
type Recorder struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder creates the instruments and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caseflow",
			Name:      "transitions_total",
			Help:      "Transition requests by source state, target state and outcome.",
		}, []string{"from", "to", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "caseflow",
			Name:      "transition_duration_seconds",
			Help:      "Wall time of transition requests, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"outcome"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.transitions, r.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// ObserveTransition records one request. outcome is OutcomeCommitted or an
// error code; it is lower-cased before use.
func (r *Recorder) ObserveTransition(from, to, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome = strings.ToLower(outcome)
	r.transitions.WithLabelValues(from, to, outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Transitions exposes the counter for inspection.
func (r *Recorder) Transitions() *prometheus.CounterVec {
	return r.transitions
}
