package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FacesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fr",
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in uploaded images",
	}, []string{"region"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fr",
		Name:      "enrollments_total",
		Help:      "Total enrollment attempts by outcome",
	}, []string{"region", "outcome"})

	DuplicatesBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fr",
		Name:      "duplicates_blocked_total",
		Help:      "Enrollments rejected by the duplicate guard",
	}, []string{"region"})

	Recognitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fr",
		Name:      "recognitions_total",
		Help:      "Recognition queries that produced at least one match",
	}, []string{"region"})

	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fr",
		Name:      "attendance_marks_total",
		Help:      "Attendance confirmations by kind (check_in, check_out)",
	}, []string{"region", "kind"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fr",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	GallerySearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fr",
		Name:      "gallery_search_duration_seconds",
		Help:      "Duration of nearest-neighbor gallery queries",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	}, []string{"region"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fr",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fr",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
