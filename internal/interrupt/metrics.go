package interrupt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_interrupt_decisions_total",
		Help: "Classifier decisions while speaking (interrupt_command, interrupt_content, ignored_filler)",
	}, []string{"outcome"})

	metricModeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_mode_transitions_total",
		Help: "Agent mode transitions",
	}, []string{"from", "to"})
)

// CountTransition records a mode change for the dashboards; callers invoke it
// from the driver so the Tracker itself stays a plain register.
func CountTransition(from, to Mode) {
	if from == to {
		return
	}
	metricModeTransitions.WithLabelValues(from.String(), to.String()).Inc()
}
