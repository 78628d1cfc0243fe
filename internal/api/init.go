package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"review-insights-go/internal/metrics"
	"review-insights-go/internal/pipeline"
	"review-insights-go/internal/storage"
)

type initRequest struct {
	Refresh bool `json:"refresh"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	if err := storage.ValidateAppID(appID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, ok := s.jobs.start(appID)
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":   "already_running",
			"jobId":    job.ID,
			"progress": job.Progress,
			"total":    job.Total,
		})
		return
	}

	go s.runInit(appID, req.Refresh)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "started",
		"jobId":   job.ID,
		"message": fmt.Sprintf("Initialization started for app %s. Poll /api/apps/%s/init/status for progress.", appID, appID),
	})
}

func (s *Server) handleInitStatus(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	job, ok := s.jobs.get(appID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"running":  false,
			"progress": 0,
			"total":    0,
			"message":  fmt.Sprintf("No init job found. Start with POST /api/apps/%s/init", appID),
		})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) runInit(appID string, refresh bool) {
	log := s.log.WithField("app_id", appID)
	log.Info("init started")

	res, err := s.initApp(s.ctx, appID, refresh, log)
	if err != nil {
		log.WithError(err).Error("init failed")
		res = InitResult{Status: resultError, AppID: appID, Error: err.Error()}
	}
	res.CompletedAt = s.now().UTC()
	s.jobs.finish(appID, res)
	metrics.InitJobs.WithLabelValues(res.Status).Inc()
	log.WithField("status", res.Status).Info("init finished")
}

// initApp fetches metadata and reviews, classifies them and stores every
// derived snapshot for the app.
func (s *Server) initApp(ctx context.Context, appID string, refresh bool, log *logrus.Entry) (InitResult, error) {
	md, err := s.fetcher.Lookup(ctx, appID)
	if err != nil {
		return InitResult{}, err
	}
	if err := s.store.Save(appID, storage.KindMetadata, md); err != nil {
		return InitResult{}, err
	}

	reviews, err := s.store.LoadReviews(appID)
	if err != nil {
		return InitResult{}, err
	}
	if refresh || len(reviews) == 0 {
		reviews, err = s.fetcher.FetchReviews(ctx, appID, s.fetchDays)
		if err != nil {
			return InitResult{}, fmt.Errorf("fetch reviews: %w", err)
		}
		if err := s.store.SaveReviews(appID, reviews); err != nil {
			return InitResult{}, err
		}
		log.WithField("reviews", len(reviews)).Info("reviews fetched")
	}
	if len(reviews) == 0 {
		return InitResult{Status: resultNoReviews, AppID: appID, Name: md.Name, Message: "No reviews found for this app"}, nil
	}

	s.jobs.progress(appID, 0, len(reviews))
	analyzed, err := s.analyzer.Analyze(ctx, reviews, func(done, total int) {
		s.jobs.progress(appID, done, total)
	})
	if err != nil {
		return InitResult{}, fmt.Errorf("analyze reviews: %w", err)
	}
	if err := s.store.SaveAnalyzed(appID, analyzed.Reviews); err != nil {
		return InitResult{}, err
	}

	rep, err := s.engine.Run(ctx, analyzed.Reviews, s.now())
	if err != nil {
		return InitResult{}, fmt.Errorf("build report: %w", err)
	}
	if err := s.saveReport(appID, rep); err != nil {
		return InitResult{}, err
	}

	return InitResult{
		Status:        resultOK,
		AppID:         appID,
		Name:          md.Name,
		TotalReviews:  len(reviews),
		TotalAnalyzed: len(analyzed.Reviews),
		CacheHits:     analyzed.CacheHits,
	}, nil
}

func (s *Server) saveReport(appID string, rep pipeline.Report) error {
	snapshots := []struct {
		kind storage.Kind
		v    any
	}{
		{storage.KindInsights, rep.Insights},
		{storage.KindRatingHistory, rep.RatingHistory},
		{storage.KindRegression, rep.Regression},
		{storage.KindTimeline, rep.Timeline},
		{storage.KindImpact, rep.Impact},
		{storage.KindMemo, rep.Memo},
	}
	for _, snap := range snapshots {
		if err := s.store.Save(appID, snap.kind, snap.v); err != nil {
			return err
		}
	}
	return nil
}
