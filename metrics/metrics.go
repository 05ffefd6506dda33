// Package metrics holds the Prometheus collectors of the back office.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"route", "status"})

	UpstreamLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "backoffice",
		Name:      "upstream_request_seconds",
		Help:      "Latency of listings API calls, by operation and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "outcome"})

	PublishOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "publish_total",
		Help:      "Listing publish attempts, by result.",
	}, []string{"result"})

	ImportedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "import_rows_total",
		Help:      "CSV rows processed, by result.",
	}, []string{"result"})

	ScrapedProperties = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "scraped_properties_total",
		Help:      "Property records produced by the scraper.",
	})

	UploadedImages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "uploaded_images_total",
		Help:      "Image uploads, by result.",
	}, []string{"result"})
)

// Registry is the registry all collectors above are registered with.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		HTTPRequests,
		UpstreamLatency,
		PublishOutcomes,
		ImportedRows,
		ScrapedProperties,
		UploadedImages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
