package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// アップロード結果のラベル
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	AssetUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_asset_uploads_total",
		Help: "Total number of product image uploads",
	}, []string{"result"})

	AssetUploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_asset_upload_duration_seconds",
		Help:    "Latency of product image uploads",
		Buckets: prometheus.DefBuckets,
	})
)
