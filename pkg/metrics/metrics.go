package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the worker-facing collectors. One instance is shared by all
// periodic tasks; a nil *Metrics disables collection.
type Metrics struct {
	SegmentsRotated prometheus.Counter
	ClipsCreated    *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
	LivenessChecks  *prometheus.CounterVec
	EventsProcessed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SegmentsRotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "cliperus_segments_rotated_total",
			Help: "Recording segments sealed by the segmentation scheduler.",
		}),
		ClipsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cliperus_clips_created_total",
			Help: "Clips finalized by the extraction pipeline, by terminal status.",
		}, []string{"status"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cliperus_uploads_total",
			Help: "Distribution jobs driven to a terminal status.",
		}, []string{"status"}),
		LivenessChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cliperus_liveness_checks_total",
			Help: "Platform liveness checks, by platform and result.",
		}, []string{"platform", "result"}),
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cliperus_trigger_events_processed_total",
			Help: "Trigger events consumed by the evaluator.",
		}),
	}
}
