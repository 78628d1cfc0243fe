// Package api serves per-app review insights over HTTP and runs the
// background init job that fetches, classifies and analyzes an app's reviews.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"review-insights-go/internal/appstore"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/pipeline"
	"review-insights-go/internal/processor"
	"review-insights-go/internal/storage"
	"review-insights-go/internal/types"
)

type Fetcher interface {
	Lookup(ctx context.Context, appID string) (appstore.AppMetadata, error)
	FetchReviews(ctx context.Context, appID string, days int) ([]types.Review, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, reviews []types.Review, progress processor.Progress) (processor.Result, error)
}

type Deps struct {
	Store     *storage.Store
	Fetcher   Fetcher
	Analyzer  Analyzer
	Engine    *pipeline.Engine
	FetchDays int
	// Context bounds background init jobs. Defaults to context.Background.
	Context context.Context
	Now     func() time.Time
	Log     *logger.Logger
}

type Server struct {
	store     *storage.Store
	fetcher   Fetcher
	analyzer  Analyzer
	engine    *pipeline.Engine
	fetchDays int
	ctx       context.Context
	now       func() time.Time
	jobs      *jobs
	log       *logger.Logger
}

func New(d Deps) *Server {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.FetchDays <= 0 {
		d.FetchDays = 90
	}
	if d.Engine == nil {
		d.Engine = pipeline.New(nil)
	}
	if d.Log == nil {
		d.Log = logger.New()
	}
	return &Server{
		store:     d.Store,
		fetcher:   d.Fetcher,
		analyzer:  d.Analyzer,
		engine:    d.Engine,
		fetchDays: d.FetchDays,
		ctx:       d.Context,
		now:       d.Now,
		jobs:      newJobs(),
		log:       d.Log.Component("api"),
	}
}

// Handler returns the routed mux. Every route is logged and measured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.instrument("healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/apps", s.instrument("apps", s.handleListApps))
	mux.HandleFunc("POST /api/apps/{appId}/init", s.instrument("init", s.handleInit))
	mux.HandleFunc("GET /api/apps/{appId}/init/status", s.instrument("init_status", s.handleInitStatus))
	mux.HandleFunc("GET /api/apps/{appId}/overview", s.instrument("overview", s.handleOverview))
	mux.HandleFunc("GET /api/apps/{appId}/issues", s.instrument("issues", s.handleIssues))
	mux.HandleFunc("GET /api/apps/{appId}/issues/{issueId}", s.instrument("issue", s.handleIssue))
	mux.HandleFunc("GET /api/apps/{appId}/requests", s.instrument("requests", s.handleRequests))
	mux.HandleFunc("GET /api/apps/{appId}/strengths", s.instrument("strengths", s.handleStrengths))
	mux.HandleFunc("GET /api/apps/{appId}/regression-tree", s.instrument("regression_tree", s.handleRegressionTree))
	mux.HandleFunc("GET /api/apps/{appId}/release-timeline", s.instrument("release_timeline", s.handleReleaseTimeline))
	mux.HandleFunc("GET /api/apps/{appId}/impact", s.instrument("impact", s.handleImpact))
	mux.HandleFunc("GET /api/apps/{appId}/gaps", s.instrument("gaps", s.handleGaps))

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.WithRequest(r).
			WithField("route", route).
			WithField("status", rec.status).
			WithField("duration_ms", elapsed.Milliseconds()).
			Info("request handled")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage errors to a response. notFound is the message
// sent when the snapshot does not exist yet.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, storage.ErrInvalidAppID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		s.log.WithRequest(r).WithError(err).Error("storage read failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
