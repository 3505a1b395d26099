package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pink_transcriber",
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Total number of completed transcription jobs",
		},
		[]string{"outcome"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pink_transcriber",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Time a job held the engine",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	jobWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pink_transcriber",
			Subsystem: "queue",
			Name:      "job_wait_seconds",
			Help:      "Time a job spent queued before service",
			Buckets:   prometheus.DefBuckets,
		},
	)

	inServiceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pink_transcriber",
			Subsystem: "queue",
			Name:      "in_service",
			Help:      "1 while a job holds the engine",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pink_transcriber",
			Subsystem: "queue",
			Name:      "pending_jobs",
			Help:      "Jobs waiting for the engine",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobDuration, jobWait, inServiceGauge, queueDepth)
}

func observe(j *Job) {
	outcome := "ok"
	if j.err != nil {
		outcome = "error"
	}
	jobsTotal.WithLabelValues(outcome).Inc()
	if !j.StartedAt.IsZero() {
		jobWait.Observe(j.StartedAt.Sub(j.EnqueuedAt).Seconds())
		jobDuration.Observe(j.FinishedAt.Sub(j.StartedAt).Seconds())
	}
}
