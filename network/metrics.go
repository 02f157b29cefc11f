package network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	validLabel   = "valid"
	outcomeLabel = "outcome"
)

var (
	networkCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "network_count_total",
		Help: "The total number of grown networks.",
	}, []string{validLabel})

	networkNodeCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "network_node_count",
		Help:    "The number of nodes of grown networks.",
		Buckets: prometheus.ExponentialBuckets(16, 2, 13),
	})

	networkGrowthDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "network_growth_duration_seconds",
		Help:    "The time taken to grow networks.",
		Buckets: prometheus.ExponentialBuckets(.001, 2, 14),
	})

	growthAttemptCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "growth_attempt_count_total",
		Help: "The total number of growth attempts by outcome.",
	}, []string{outcomeLabel})
)

func instrumentGrowth(n *Network) {
	valid := "false"
	if n.valid {
		valid = "true"
	}

	networkCountTotal.
		With(prometheus.Labels{validLabel: valid}).
		Inc()

	networkNodeCount.Observe(float64(n.nodeCount))
	networkGrowthDuration.Observe(n.duration.Seconds())

	for outcome, count := range map[string]int{
		"accepted":  n.attempts.Accepted,
		"angle":     n.attempts.Angle,
		"stability": n.attempts.Stability,
		"collision": n.attempts.Collision,
	} {
		growthAttemptCountTotal.
			With(prometheus.Labels{outcomeLabel: outcome}).
			Add(float64(count))
	}
}
