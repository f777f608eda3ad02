// Package metrics holds Prometheus instruments that are used across the
// service. All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UploadsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holoheri_uploads_accepted_total",
			Help: "Files accepted by the upload intake, by field.",
		}, []string{"field"})

	UploadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holoheri_upload_bytes",
			Help:    "Size of accepted files, by field.",
			Buckets: prometheus.ExponentialBuckets(64<<10, 4, 8),
		}, []string{"field"})

	UploadsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holoheri_uploads_rejected_total",
			Help: "Upload requests rejected by the intake, by reason.",
		}, []string{"reason"})

	SiteOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holoheri_site_operations_total",
			Help: "Successful site operations, by operation.",
		}, []string{"op"})

	ReclaimFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holoheri_reclaim_failures_total",
			Help: "Stored files that could not be removed after a site was deleted.",
		})

	ReclaimDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holoheri_reclaim_dropped_total",
			Help: "Reclaim jobs dropped because the queue was full or unreachable.",
		})

	ObjectsMirrored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holoheri_objects_mirrored_total",
			Help: "3D models copied to the object store.",
		})

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holoheri_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(
		UploadsAccepted,
		UploadBytes,
		UploadsRejected,
		SiteOperations,
		ReclaimFailures,
		ReclaimDropped,
		ObjectsMirrored,
		RequestDuration,
	)
}
