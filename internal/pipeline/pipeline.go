// Package pipeline runs the whole engine over one analyzed batch and memoizes
// the resulting report.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"review-insights-go/internal/actionable"
	"review-insights-go/internal/aggregator"
	"review-insights-go/internal/cache"
	"review-insights-go/internal/impact"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/regression"
	"review-insights-go/internal/timeline"
	"review-insights-go/internal/types"
)

type Report struct {
	GeneratedAt   time.Time                  `json:"generatedAt"`
	Insights      aggregator.Insights        `json:"insights"`
	RatingHistory []aggregator.MonthlyRating `json:"ratingHistory"`
	Regression    regression.Tree            `json:"regression"`
	Timeline      timeline.Timeline          `json:"timeline"`
	Impact        impact.Model               `json:"impact"`
	Memo          string                     `json:"memo"`
	Actions       []actionable.ActionCard    `json:"actions"`
}

// Build computes a report synchronously. It is a pure function of its
// arguments.
func Build(reviews []types.AnalyzedReview, now time.Time) Report {
	tree := regression.Build(reviews)
	tl := timeline.Build(reviews)
	ins := aggregator.Generate(reviews, now)
	model := impact.Build(tree, tl)
	return Report{
		GeneratedAt:   now.UTC(),
		Insights:      ins,
		RatingHistory: aggregator.RatingHistory(rawReviews(reviews)),
		Regression:    tree,
		Timeline:      tl,
		Impact:        model,
		Memo:          actionable.Memo(reviews),
		Actions:       actionable.Generate(model, ins),
	}
}

type Engine struct {
	cache cache.Cache
	log   *logger.Logger
}

// New returns an engine. A nil cache disables memoization.
func New(c cache.Cache) *Engine {
	return &Engine{cache: c, log: logger.New().Component("pipeline")}
}

// Run builds the report for reviews, reusing a memoized one when the same
// batch was already computed for the same day. The independent builders run
// concurrently.
func (e *Engine) Run(ctx context.Context, reviews []types.AnalyzedReview, now time.Time) (Report, error) {
	start := time.Now()
	key := cache.MemoKey(reviews) + ":" + now.UTC().Format("2006-01-02")
	log := e.log.WithField("reviews", len(reviews))

	if e.cache != nil {
		var cached Report
		ok, err := e.cache.Get(ctx, key, &cached)
		if err != nil {
			log.WithError(err).Warn("memo read failed")
		}
		if ok {
			metrics.CacheHits.WithLabelValues("memo").Inc()
			metrics.PipelineDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			log.Debug("memo hit")
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("memo").Inc()
	}

	var (
		tree    regression.Tree
		tl      timeline.Timeline
		ins     aggregator.Insights
		history []aggregator.MonthlyRating
		memo    string
	)
	var g errgroup.Group
	g.Go(func() error { tree = regression.Build(reviews); return nil })
	g.Go(func() error { tl = timeline.Build(reviews); return nil })
	g.Go(func() error { ins = aggregator.Generate(reviews, now); return nil })
	g.Go(func() error { history = aggregator.RatingHistory(rawReviews(reviews)); return nil })
	g.Go(func() error { memo = actionable.Memo(reviews); return nil })
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	model := impact.Build(tree, tl)
	report := Report{
		GeneratedAt:   now.UTC(),
		Insights:      ins,
		RatingHistory: history,
		Regression:    tree,
		Timeline:      tl,
		Impact:        model,
		Memo:          memo,
		Actions:       actionable.Generate(model, ins),
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, report); err != nil {
			log.WithError(err).Warn("memo write failed")
		}
	}
	metrics.PipelineDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	log.WithField("issues", len(ins.Issues)).
		WithField("skipped", tree.SkippedReviews).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("report built")
	return report, nil
}

func rawReviews(reviews []types.AnalyzedReview) []types.Review {
	out := make([]types.Review, len(reviews))
	for i, r := range reviews {
		out[i] = r.Review
	}
	return out
}
