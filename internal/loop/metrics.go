package loop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_barge_ins_total",
		Help: "Actionable utterances received while the agent was speaking",
	})

	metricTranscriptsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_transcripts_dropped_total",
		Help: "Final transcripts dropped as filler or empty",
	})

	metricStopLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_stop_latency_ms",
		Help:    "Latency from barge-in transcript to tts_stopped (backend clock, ms)",
		Buckets: prometheus.ExponentialBuckets(10, 1.6, 10),
	})
)
