package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultLabel = "result"
	stageLabel  = "stage"
)

var (
	generationCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_count_total",
		Help: "The total number of generation requests by result.",
	}, []string{resultLabel})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "generation_duration_seconds",
		Help:    "The time taken by each generation stage.",
		Buckets: prometheus.ExponentialBuckets(.001, 2, 14),
	}, []string{stageLabel})

	generationSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_size_bytes",
		Help:    "The size of encoded documents.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	cacheRequestCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_request_count_total",
		Help: "The total number of cache lookups by result.",
	}, []string{resultLabel})
)

func instrumentGeneration(result string) {
	generationCountTotal.
		With(prometheus.Labels{resultLabel: result}).
		Inc()
}

func instrumentStage(stage string, d time.Duration) {
	generationDuration.
		With(prometheus.Labels{stageLabel: stage}).
		Observe(d.Seconds())
}

func instrumentSize(size int) {
	generationSize.Observe(float64(size))
}

func instrumentCacheRequest(result string) {
	cacheRequestCountTotal.
		With(prometheus.Labels{resultLabel: result}).
		Inc()
}
