package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelday_tasks_enqueued_total",
		Help: "Chapter generation tasks enqueued, by period kind.",
	}, []string{"kind"})

	chaptersGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelday_chapters_generated_total",
		Help: "Chapters generated and stored, by period kind.",
	}, []string{"kind"})

	workerSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelday_worker_skips_total",
		Help: "Worker runs skipped without generating, by reason.",
	}, []string{"reason"})

	dispatchDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelday_dispatch_drops_total",
		Help: "Queue tasks dropped after a client error or exhausted retries.",
	}, []string{"queue"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "novelday_generation_duration_seconds",
		Help:    "Wall time of one chapter generation call.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"kind"})
)

// RecordTaskEnqueued counts one enqueued generation task.
func RecordTaskEnqueued(kind string) {
	tasksEnqueued.WithLabelValues(kind).Inc()
}

// RecordChapterGenerated counts one stored chapter.
func RecordChapterGenerated(kind string) {
	chaptersGenerated.WithLabelValues(kind).Inc()
}

// RecordWorkerSkip counts one skipped worker run.
func RecordWorkerSkip(reason string) {
	workerSkips.WithLabelValues(reason).Inc()
}

// ObserveGeneration records the duration of one generation call.
func ObserveGeneration(kind string, start time.Time) {
	generationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
