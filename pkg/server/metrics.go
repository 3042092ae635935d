package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Metrics names.
	MetricNameBuildInfo       = "vizlake_build_info"
	MetricNameRequests        = "vizlake_http_requests_total"
	MetricNameRequestDuration = "vizlake_http_request_duration_seconds"
	MetricNameRenderCache     = "vizlake_render_cache_lookups_total"

	// Labels.
	LabelVersion = "version"
	LabelCommit  = "commit"
	LabelDate    = "date"
	LabelRoute   = "route"
	LabelCode    = "code"
	LabelResult  = "result"

	// Cache lookup results.
	CacheResultHit  = "hit"
	CacheResultMiss = "miss"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the vizlake server",
		},
		[]string{LabelVersion, LabelCommit, LabelDate},
	)

	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRequests,
			Help: "Number of HTTP requests handled, by route and status code",
		},
		[]string{LabelRoute, LabelCode},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameRequestDuration,
			Help:    "HTTP request duration in seconds, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelRoute},
	)

	RenderCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRenderCache,
			Help: "Render cache lookups, by result",
		},
		[]string{LabelResult},
	)
)
