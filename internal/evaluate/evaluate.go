/*
Package evaluate applies the relevance oracle to a batch of search results and
reduces the verdicts to an actionable subset and a summary.
*/
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/ai"
	"github.com/shanehull/preminder/internal/types"
)

// Classifier judges one search result. Implementations return the zero
// verdict whenever they return an error.
type Classifier interface {
	Classify(ctx context.Context, result types.SearchResult, query string, referenceDate time.Time) (types.Verdict, error)
}

type Options struct {
	Concurrency int           // parallel oracle calls per batch, default 3
	Retries     int           // extra attempts on transport errors
	Backoff     time.Duration // initial retry delay
	MaxBackoff  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Concurrency: 3,
		Retries:     2,
		Backoff:     500 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
	}
}

type Evaluator struct {
	oracle Classifier
	opts   Options
	logger *zap.Logger
}

func New(oracle Classifier, logger *zap.Logger, opts Options) *Evaluator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Evaluator{
		oracle: oracle,
		opts:   opts,
		logger: logger.Named("evaluator"),
	}
}

// Evaluate classifies every result independently. The returned verdicts are
// parallel to results; a result whose classification failed is {false, false}.
func (e *Evaluator) Evaluate(ctx context.Context, results []types.SearchResult, query string, referenceDate time.Time) ([]types.Verdict, types.Summary) {
	verdicts := make([]types.Verdict, len(results))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.opts.Concurrency)

	for i, r := range results {
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Snippet) == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(i int, r types.SearchResult) {
			defer wg.Done()
			defer func() { <-sem }()

			verdicts[i] = e.classify(ctx, r, query, referenceDate)
		}(i, r)
	}

	wg.Wait()

	return verdicts, Summarize(verdicts)
}

func (e *Evaluator) classify(ctx context.Context, r types.SearchResult, query string, referenceDate time.Time) (verdict types.Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			oracleFailuresTotal.WithLabelValues("panic").Inc()
			e.logger.Error("Oracle panicked, failing closed", zap.String("link", r.Link), zap.Any("panic", rec))
			verdict = types.Verdict{}
		}
	}()

	delay := e.opts.Backoff
	for attempt := 0; ; attempt++ {
		v, err := e.oracle.Classify(ctx, r, query, referenceDate)
		if err == nil {
			return v
		}

		if errors.Is(err, ai.ErrUnparseable) {
			oracleFailuresTotal.WithLabelValues("unparseable").Inc()
			e.logger.Warn("Oracle output unparseable, failing closed", zap.String("link", r.Link), zap.Error(err))
			return types.Verdict{}
		}

		if attempt >= e.opts.Retries {
			oracleFailuresTotal.WithLabelValues("error").Inc()
			e.logger.Warn("Oracle call failed, failing closed",
				zap.String("link", r.Link),
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return types.Verdict{}
		}

		if werr := wait(ctx, delay); werr != nil {
			oracleFailuresTotal.WithLabelValues("error").Inc()
			e.logger.Warn("Oracle retry abandoned", zap.String("link", r.Link), zap.Error(fmt.Errorf("%w (last error: %v)", werr, err)))
			return types.Verdict{}
		}
		delay = nextBackoff(delay, e.opts.MaxBackoff)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nextBackoff(d, maxBackoff time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	d *= 2
	if maxBackoff > 0 && d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Actionable returns the results whose verdicts hold on both predicates, in
// input order.
func Actionable(results []types.SearchResult, verdicts []types.Verdict) []types.SearchResult {
	var out []types.SearchResult
	for i, r := range results {
		if i < len(verdicts) && verdicts[i].Actionable() {
			out = append(out, r)
		}
	}
	return out
}

// Combine zips results with their verdicts.
func Combine(results []types.SearchResult, verdicts []types.Verdict) []types.EvaluatedResult {
	out := make([]types.EvaluatedResult, len(results))
	for i, r := range results {
		out[i].SearchResult = r
		if i < len(verdicts) {
			out[i].Verdict = verdicts[i]
		}
	}
	return out
}

func Summarize(verdicts []types.Verdict) types.Summary {
	s := types.Summary{Total: len(verdicts)}
	for _, v := range verdicts {
		if v.TopicRelevant {
			s.Relevant++
		}
		if v.FutureDated {
			s.FutureDated++
		}
		if v.Actionable() {
			s.RelevantAndFuture++
		}
	}
	return s
}
