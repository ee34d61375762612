package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TierFallbacks counts retrievals that had to leave the vector tier,
	// labeled by partition and the tier that finally served the request.
	TierFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "retrieval",
		Name:      "tier_fallbacks_total",
		Help:      "Retrievals served by a non-primary tier.",
	}, []string{"partition", "tier"})

	// PartitionFailures counts partitions that degraded to an empty result.
	PartitionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "retrieval",
		Name:      "partition_failures_total",
		Help:      "Partition searches that failed across all tiers.",
	}, []string{"partition"})

	// StageErrors counts recorded (non-fatal) pipeline stage errors.
	StageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "pipeline",
		Name:      "stage_errors_total",
		Help:      "Errors recorded by pipeline stages.",
	}, []string{"stage"})

	// TagsEnqueued counts exchanges handed to the tagging worker.
	TagsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "tagging",
		Name:      "enqueued_total",
		Help:      "Tagging tasks accepted by the queue.",
	})

	// TagsDropped counts tagging tasks dropped because the queue was full.
	TagsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "tagging",
		Name:      "dropped_total",
		Help:      "Tagging tasks dropped due to a full queue.",
	})

	// TagsFailed counts tagging tasks that failed during classification or write.
	TagsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "tagging",
		Name:      "failed_total",
		Help:      "Tagging tasks that failed.",
	})

	// TagsCompleted counts successfully written concept tags.
	TagsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mentora",
		Subsystem: "tagging",
		Name:      "completed_total",
		Help:      "Tagging tasks completed.",
	})
)
