package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "answers_total",
			Help:      "Total number of answered questions by status",
		},
		[]string{"status"},
	)

	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Name:      "answer_duration_seconds",
			Help:      "Answering pipeline duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	IndexedChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatbot",
			Name:      "indexed_chunks",
			Help:      "Number of chunks in the serving index",
		},
	)
)

// Register adds the chatbot collectors to reg
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{AnswersTotal, AnswerDuration, IndexedChunks} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnswer records one pipeline invocation
func ObserveAnswer(status string, d time.Duration) {
	AnswersTotal.WithLabelValues(status).Inc()
	AnswerDuration.WithLabelValues(status).Observe(d.Seconds())
}
