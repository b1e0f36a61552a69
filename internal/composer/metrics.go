package composer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tangled_thread_submissions_total",
			Help: "Thread submissions by result",
		},
		[]string{"result"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tangled_image_uploads_total",
			Help: "Image upload chains by result",
		},
		[]string{"result"},
	)

	uploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tangled_image_upload_seconds",
			Help:    "Time from image selection to resolved download URL",
			Buckets: prometheus.DefBuckets,
		},
	)

	draftSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tangled_draft_sessions",
			Help: "Composer sessions currently held in memory",
		},
	)

	draftSessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tangled_draft_sessions_evicted_total",
			Help: "Composer sessions dropped to stay under the session limit",
		},
	)
)

const (
	resultOK        = "ok"
	resultEmpty     = "empty"
	resultBusy      = "busy"
	resultPending   = "pending"
	resultError     = "error"
	resultCancelled = "cancelled"
)
