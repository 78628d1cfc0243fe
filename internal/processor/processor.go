// Package processor turns raw reviews into analyzed reviews: cache lookup by
// content fingerprint, classification on a miss, defensive fallback on failure.
package processor

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"review-insights-go/internal/cache"
	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
	"review-insights-go/internal/types"
)

type Classifier interface {
	Classify(ctx context.Context, text string) (types.Classification, error)
}

// Progress is called after each review with the number finished so far.
type Progress func(done, total int)

type Result struct {
	Reviews    []types.AnalyzedReview `json:"reviews"`
	CacheHits  int                    `json:"cache_hits"`
	Classified int                    `json:"classified"`
	Failed     int                    `json:"failed"`
	DurationMs int64                  `json:"duration_ms"`
}

type Processor struct {
	classifier Classifier
	cache      cache.Cache
	workers    int
	log        *logger.Logger
}

// New builds a processor. A nil cache disables caching.
func New(classifier Classifier, c cache.Cache, workers int) *Processor {
	if workers <= 0 {
		workers = 4
	}
	return &Processor{
		classifier: classifier,
		cache:      c,
		workers:    workers,
		log:        logger.New().Component("processor"),
	}
}

// Analyze classifies every review, preserving input order. A failed
// classification yields an empty one for that review and never fails the
// batch; only context cancellation does.
func (p *Processor) Analyze(ctx context.Context, reviews []types.Review, progress Progress) (Result, error) {
	start := time.Now()
	out := make([]types.AnalyzedReview, len(reviews))
	var hits, classified, failed, done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, r := range reviews {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, outcome := p.classifyOne(gctx, r)
			out[i] = types.AnalyzedReview{Review: r, Classification: c}
			switch outcome {
			case outcomeCached:
				atomic.AddInt64(&hits, 1)
			case outcomeClassified:
				atomic.AddInt64(&classified, 1)
			case outcomeFailed:
				atomic.AddInt64(&failed, 1)
			}
			metrics.ReviewsAnalyzed.WithLabelValues(string(outcome)).Inc()
			n := atomic.AddInt64(&done, 1)
			if progress != nil {
				progress(int(n), len(reviews))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Reviews:    out,
		CacheHits:  int(hits),
		Classified: int(classified),
		Failed:     int(failed),
		DurationMs: time.Since(start).Milliseconds(),
	}
	p.log.WithField("reviews", len(out)).
		WithField("cache_hits", res.CacheHits).
		WithField("failed", res.Failed).
		WithField("duration_ms", res.DurationMs).
		Info("batch analyzed")
	return res, nil
}

type outcome string

const (
	outcomeCached     outcome = "cached"
	outcomeClassified outcome = "classified"
	outcomeFailed     outcome = "failed"
)

func (p *Processor) classifyOne(ctx context.Context, r types.Review) (types.Classification, outcome) {
	key := cache.ReviewKey(r)
	if p.cache != nil {
		var c types.Classification
		ok, err := p.cache.Get(ctx, key, &c)
		if err != nil {
			p.log.WithError(err).Warn("cache read failed")
		}
		if ok {
			metrics.CacheHits.WithLabelValues("review").Inc()
			return c, outcomeCached
		}
		metrics.CacheMisses.WithLabelValues("review").Inc()
	}

	c, err := p.classifier.Classify(ctx, r.Text)
	if err != nil {
		p.log.WithError(err).WithField("version", r.Version).Warn("classification failed, using empty result")
		return types.Classification{}, outcomeFailed
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, c); err != nil {
			p.log.WithError(err).Warn("cache write failed")
		}
	}
	return c, outcomeClassified
}
