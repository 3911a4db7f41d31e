/*
Package monitor drives the monitoring cycle: for every tracked event it
searches, evaluates the results and dispatches a notification when new
actionable information has surfaced.
*/
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shanehull/preminder/internal/evaluate"
	"github.com/shanehull/preminder/internal/notify"
	"github.com/shanehull/preminder/internal/types"
)

// ErrCycleInProgress is returned when a cycle is triggered while another one
// is still running.
var ErrCycleInProgress = errors.New("monitor: cycle already in progress")

type EventLister interface {
	ListEvents(ctx context.Context) ([]types.TrackedEvent, error)
}

type AddressResolver interface {
	OwnerAddress(ctx context.Context, ownerID int64) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) []types.SearchResult
}

type Evaluator interface {
	Evaluate(ctx context.Context, results []types.SearchResult, query string, referenceDate time.Time) ([]types.Verdict, types.Summary)
}

type Dispatcher interface {
	ComposeAndSend(ctx context.Context, recipient string, eventLabel string, actionable []types.SearchResult) notify.Outcome
}

// Ledger suppresses results that were already dispatched for an event.
type Ledger interface {
	FilterNew(eventID int64, results []types.SearchResult) []types.SearchResult
	Record(eventID int64, results []types.SearchResult) error
}

type Deps struct {
	Events     EventLister
	Addresses  AddressResolver
	Searcher   Searcher
	Evaluator  Evaluator
	Dispatcher Dispatcher
	Ledger     Ledger // nil disables cross-cycle dedup
}

type Options struct {
	SearchLimit int
	// Pacing is the minimum delay between two events' searches.
	Pacing time.Duration
	Now    func() time.Time
}

type Controller struct {
	deps    Deps
	opts    Options
	gate    *rate.Limiter
	logger  *zap.Logger
	running atomic.Bool
}

func New(deps Deps, logger *zap.Logger, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	gate := rate.NewLimiter(rate.Inf, 1)
	if opts.Pacing > 0 {
		gate = rate.NewLimiter(rate.Every(opts.Pacing), 1)
	}

	return &Controller{
		deps:   deps,
		opts:   opts,
		gate:   gate,
		logger: logger.Named("monitor"),
	}
}

type EventReport struct {
	EventID    int64          `json:"event_id"`
	Query      string         `json:"query"`
	Summary    types.Summary  `json:"summary"`
	Actionable int            `json:"actionable"`
	New        int            `json:"new"`
	Outcome    notify.Outcome `json:"outcome"`
	Error      string         `json:"error,omitempty"`
}

func (r EventReport) result() string {
	if r.Error != "" {
		return "error"
	}
	return string(r.Outcome.Status)
}

type Report struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Interrupted bool          `json:"interrupted"`
	Events      []EventReport `json:"events"`
}

// RunCycle makes one pass over a snapshot of all tracked events. It only
// returns an error when the snapshot cannot be taken. Once an event has
// started, its steps run to completion even if ctx is cancelled; no further
// event is started after cancellation.
func (c *Controller) RunCycle(ctx context.Context) (Report, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Report{}, ErrCycleInProgress
	}
	defer c.running.Store(false)

	report := Report{RunID: uuid.NewString(), StartedAt: c.opts.Now()}
	logger := c.logger.With(zap.String("run_id", report.RunID))

	events, err := c.deps.Events.ListEvents(ctx)
	if err != nil {
		cyclesTotal.WithLabelValues("aborted").Inc()
		logger.Error("Failed to list tracked events, aborting cycle", zap.Error(err))
		return report, fmt.Errorf("list events: %w", err)
	}

	logger.Info("Starting monitoring cycle", zap.Int("events", len(events)))
	referenceDate := report.StartedAt
	report.Events = make([]EventReport, 0, len(events))

	for i, ev := range events {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		if err := c.gate.Wait(ctx); err != nil {
			report.Interrupted = true
			break
		}

		logger.Info("Processing event",
			zap.Int64("event_id", ev.ID),
			zap.Int("position", i+1),
			zap.Int("total", len(events)),
		)
		rep := c.processEvent(context.WithoutCancel(ctx), logger, ev, referenceDate)
		report.Events = append(report.Events, rep)
	}

	report.FinishedAt = c.opts.Now()
	cycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	if report.Interrupted {
		cyclesTotal.WithLabelValues("interrupted").Inc()
		logger.Warn("Monitoring cycle interrupted", zap.Int("processed", len(report.Events)), zap.Int("total", len(events)))
	} else {
		cyclesTotal.WithLabelValues("completed").Inc()
		logger.Info("Monitoring cycle finished", zap.Int("processed", len(report.Events)))
	}

	return report, nil
}

func (c *Controller) processEvent(ctx context.Context, logger *zap.Logger, ev types.TrackedEvent, referenceDate time.Time) (rep EventReport) {
	rep = EventReport{EventID: ev.ID, Query: ev.Query}
	logger = logger.With(zap.Int64("event_id", ev.ID))

	defer func() {
		if rec := recover(); rec != nil {
			rep.Error = fmt.Sprintf("panic: %v", rec)
			logger.Error("Event processing panicked", zap.Any("panic", rec))
		}
		eventsTotal.WithLabelValues(rep.result()).Inc()
	}()

	results := c.deps.Searcher.Search(ctx, ev.Query, c.opts.SearchLimit)

	verdicts, summary := c.deps.Evaluator.Evaluate(ctx, results, ev.Query, referenceDate)
	rep.Summary = summary

	actionable := evaluate.Actionable(results, verdicts)
	rep.Actionable = len(actionable)
	if c.deps.Ledger != nil {
		actionable = c.deps.Ledger.FilterNew(ev.ID, actionable)
	}
	rep.New = len(actionable)

	if len(actionable) == 0 {
		rep.Outcome = notify.Outcome{Status: notify.StatusSkippedEmpty}
		logger.Debug("Nothing new to notify", zap.Int("results", summary.Total), zap.Int("actionable", rep.Actionable))
		return rep
	}

	recipient, err := c.deps.Addresses.OwnerAddress(ctx, ev.OwnerID)
	if err != nil {
		rep.Error = fmt.Sprintf("resolve owner address: %v", err)
		logger.Warn("Skipping event, owner lookup failed", zap.Int64("owner_id", ev.OwnerID), zap.Error(err))
		return rep
	}

	rep.Outcome = c.deps.Dispatcher.ComposeAndSend(ctx, recipient, ev.Query, actionable)
	if rep.Outcome.Status == notify.StatusSent && c.deps.Ledger != nil {
		if err := c.deps.Ledger.Record(ev.ID, actionable); err != nil {
			logger.Warn("Failed to record dispatched results", zap.Error(err))
		}
	}

	logger.Info("Event processed",
		zap.Int("results", summary.Total),
		zap.Int("actionable", rep.Actionable),
		zap.Int("new", rep.New),
		zap.Stringer("outcome", rep.Outcome),
	)
	return rep
}

type CheckResult struct {
	Query   string                  `json:"query"`
	Results []types.EvaluatedResult `json:"results"`
	Summary types.Summary           `json:"summary"`
}

// Check runs search and evaluation for an ad hoc query without dispatching
// anything. It is not paced.
func (c *Controller) Check(ctx context.Context, query string) CheckResult {
	results := c.deps.Searcher.Search(ctx, query, c.opts.SearchLimit)
	verdicts, summary := c.deps.Evaluator.Evaluate(ctx, results, query, c.opts.Now())

	return CheckResult{
		Query:   query,
		Results: evaluate.Combine(results, verdicts),
		Summary: summary,
	}
}
