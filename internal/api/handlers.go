package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"review-insights-go/internal/aggregator"
	"review-insights-go/internal/appstore"
	"review-insights-go/internal/competitor"
	"review-insights-go/internal/impact"
	"review-insights-go/internal/normalize"
	"review-insights-go/internal/regression"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/storage"
	"review-insights-go/internal/timeline"
	"review-insights-go/internal/types"
)

const (
	msgNotInitialized = "No insights available. Run /api/apps/{appId}/init first."
	maxCompetitors    = 5
)

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListApps()
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}
	apps := make([]appstore.AppMetadata, 0, len(ids))
	for _, id := range ids {
		var md appstore.AppMetadata
		if err := s.store.Load(id, storage.KindMetadata, &md); err != nil {
			md = appstore.AppMetadata{AppID: id}
		}
		apps = append(apps, md)
	}
	writeJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

type quickItem struct {
	Title    string `json:"title"`
	Severity string `json:"severity,omitempty"`
	Count    int    `json:"count"`
}

type ratingTrend struct {
	Direction string  `json:"direction"`
	Change    float64 `json:"change"`
	Period    string  `json:"period"`
}

type quickInsights struct {
	TopIssue    *quickItem  `json:"topIssue"`
	TopRequest  *quickItem  `json:"topRequest"`
	TopStrength *quickItem  `json:"topStrength"`
	RatingTrend ratingTrend `json:"ratingTrend"`
}

type overview struct {
	Metadata      appstore.AppMetadata       `json:"metadata"`
	QuickInsights quickInsights              `json:"quickInsights"`
	Metrics       aggregator.Summary         `json:"metrics"`
	RatingHistory []aggregator.MonthlyRating `json:"ratingHistory"`
	Memo          string                     `json:"memo"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")

	var md appstore.AppMetadata
	if err := s.store.Load(appID, storage.KindMetadata, &md); err != nil {
		s.writeStoreError(w, r, err, "App not found. Run /api/apps/{appId}/init first.")
		return
	}
	ins, ok := s.loadInsights(w, r, appID)
	if !ok {
		return
	}

	var history []aggregator.MonthlyRating
	if err := s.store.Load(appID, storage.KindRatingHistory, &history); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.writeStoreError(w, r, err, "")
		return
	}
	var memo string
	if err := s.store.Load(appID, storage.KindMemo, &memo); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.writeStoreError(w, r, err, "")
		return
	}

	q := quickInsights{RatingTrend: trendOf(history)}
	if len(ins.Issues) > 0 {
		top := ins.Issues[0]
		q.TopIssue = &quickItem{Title: top.Title, Severity: top.Severity, Count: top.Count}
	}
	if len(ins.Requests) > 0 {
		q.TopRequest = &quickItem{Title: ins.Requests[0].Title, Count: ins.Requests[0].Count}
	}
	if len(ins.Strengths) > 0 {
		q.TopStrength = &quickItem{Title: ins.Strengths[0].Title, Count: ins.Strengths[0].Count}
	}
	if history == nil {
		history = []aggregator.MonthlyRating{}
	}

	writeJSON(w, http.StatusOK, overview{
		Metadata:      md,
		QuickInsights: q,
		Metrics:       ins.Summary,
		RatingHistory: history,
		Memo:          memo,
	})
}

// trendOf compares the latest month with the average of up to three months
// before it. Fewer than three months of history is stable.
func trendOf(history []aggregator.MonthlyRating) ratingTrend {
	t := ratingTrend{Direction: "stable", Period: "3 months"}
	if len(history) < 3 {
		return t
	}
	recent := history[len(history)-1]
	from := len(history) - 4
	if from < 0 {
		from = 0
	}
	earlier := history[from : len(history)-1]
	sum := 0.0
	for _, m := range earlier {
		sum += m.AvgRating
	}
	t.Change = stats.Round(recent.AvgRating-sum/float64(len(earlier)), 2)
	switch {
	case t.Change > 0.1:
		t.Direction = "up"
	case t.Change < -0.1:
		t.Direction = "down"
	}
	return t
}

func (s *Server) loadInsights(w http.ResponseWriter, r *http.Request, appID string) (aggregator.Insights, bool) {
	var ins aggregator.Insights
	if err := s.store.Load(appID, storage.KindInsights, &ins); err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return ins, false
	}
	return ins, true
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	ins, ok := s.loadInsights(w, r, r.PathValue("appId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": ins.Issues, "totalCount": len(ins.Issues)})
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	ins, ok := s.loadInsights(w, r, appID)
	if !ok {
		return
	}
	id := normalize.Key(r.PathValue("issueId"))
	var issue *aggregator.Issue
	for i := range ins.Issues {
		if ins.Issues[i].ID == id {
			issue = &ins.Issues[i]
			break
		}
	}
	if issue == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Issue '%s' not found", r.PathValue("issueId")))
		return
	}
	analyzed, err := s.store.LoadAnalyzed(appID)
	if err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, aggregator.IssueDeepDive(*issue, analyzed))
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	ins, ok := s.loadInsights(w, r, r.PathValue("appId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": ins.Requests, "totalCount": len(ins.Requests)})
}

func (s *Server) handleStrengths(w http.ResponseWriter, r *http.Request) {
	ins, ok := s.loadInsights(w, r, r.PathValue("appId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strengths": ins.Strengths, "totalCount": len(ins.Strengths)})
}

func (s *Server) handleRegressionTree(w http.ResponseWriter, r *http.Request) {
	var tree regression.Tree
	if err := s.store.Load(r.PathValue("appId"), storage.KindRegression, &tree); err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleReleaseTimeline(w http.ResponseWriter, r *http.Request) {
	var tl timeline.Timeline
	if err := s.store.Load(r.PathValue("appId"), storage.KindTimeline, &tl); err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	var model impact.Model
	if err := s.store.Load(r.PathValue("appId"), storage.KindImpact, &model); err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

type gapsResponse struct {
	AppID       string                           `json:"appId"`
	Signals     competitor.Signals               `json:"signals"`
	Comparison  map[string]competitor.Comparison `json:"comparison"`
	Gaps        []competitor.Gap                 `json:"gaps"`
	Unavailable []string                         `json:"unavailable,omitempty"`
}

// handleGaps compares the app with up to five competitors. Competitors that
// were never initialized are fetched and classified on the spot.
func (s *Server) handleGaps(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("competitors"), ",") {
		if id = strings.TrimSpace(id); id != "" && id != appID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "competitors query parameter is required")
		return
	}
	if len(ids) > maxCompetitors {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d competitors", maxCompetitors))
		return
	}

	main, err := s.store.LoadAnalyzed(appID)
	if err != nil {
		s.writeStoreError(w, r, err, msgNotInitialized)
		return
	}

	resp := gapsResponse{AppID: appID, Signals: competitor.ExtractSignals(main)}
	apps := map[string]competitor.App{}
	signals := map[string]competitor.Signals{}
	for _, id := range ids {
		app, err := s.competitorApp(r, id)
		if err != nil {
			s.log.WithRequest(r).WithField("competitor", id).WithError(err).Warn("competitor unavailable")
			resp.Unavailable = append(resp.Unavailable, id)
			continue
		}
		apps[id] = app
		signals[id] = competitor.ExtractSignals(app.Reviews)
	}
	resp.Comparison = competitor.Compare(apps)
	resp.Gaps = competitor.GapAnalysis(resp.Signals, signals)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) competitorApp(r *http.Request, id string) (competitor.App, error) {
	if err := storage.ValidateAppID(id); err != nil {
		return competitor.App{}, err
	}
	var md appstore.AppMetadata
	if err := s.store.Load(id, storage.KindMetadata, &md); err != nil {
		if md, err = s.fetcher.Lookup(r.Context(), id); err != nil {
			return competitor.App{}, err
		}
	}
	reviews, err := s.store.LoadAnalyzed(id)
	if err == nil {
		return competitor.App{Name: md.Name, Reviews: reviews}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return competitor.App{}, err
	}

	raw, err := s.fetcher.FetchReviews(r.Context(), id, s.fetchDays)
	if err != nil {
		return competitor.App{}, fmt.Errorf("fetch reviews: %w", err)
	}
	res, err := s.analyzer.Analyze(r.Context(), raw, nil)
	if err != nil {
		return competitor.App{}, fmt.Errorf("analyze reviews: %w", err)
	}
	return competitor.App{Name: md.Name, Reviews: analyzedOnly(res.Reviews)}, nil
}

// analyzedOnly drops reviews whose classification failed.
func analyzedOnly(reviews []types.AnalyzedReview) []types.AnalyzedReview {
	out := make([]types.AnalyzedReview, 0, len(reviews))
	for _, r := range reviews {
		if r.Intent != "" {
			out = append(out, r)
		}
	}
	return out
}
