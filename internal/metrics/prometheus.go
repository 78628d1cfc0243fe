package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_insights_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_insights_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"route"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_insights_pipeline_duration_seconds",
			Help:    "Engine run duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"memo"},
	)

	ReviewsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_insights_reviews_analyzed_total",
			Help: "Reviews run through classification, by outcome",
		},
		[]string{"outcome"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_insights_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_insights_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	InitJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_insights_init_jobs_total",
			Help: "Background init jobs by final status",
		},
		[]string{"status"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
		prometheus.MustRegister(PipelineDuration)
		prometheus.MustRegister(ReviewsAnalyzed)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(InitJobs)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
