// Package pagination drives the scan/scroll loop over an infinitely
// scrolling result page.
//
// Each pass extracts every rendered item, offers them to a Collector in
// reverse rendering order, scrolls, waits a randomized pause and compares
// the page height with the previous pass. A pass that finds nothing new on
// an unchanged page is a stall. Stalls below the threshold earn a longer
// pause; reaching the threshold triggers a long cool-down, after which the
// stall count resets and scanning resumes. Only reaching the target or
// cancelling the context ends the loop.
package pagination

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"xscraper/pkg/collector"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/retry"
)

// Result is the outcome of one engine run.
type Result struct {
	Records    []models.Record
	State      State
	Passes     int
	Stalls     int
	LongPauses int
	Duration   time.Duration
}

// Engine runs one collection at a time. It is not safe for concurrent use.
type Engine struct {
	page      PageAdapter
	cfg       Config
	sleeper   retry.Sleeper
	rng       *rand.Rand
	log       logger.Logger
	observer  Observer
	collector *collector.Collector

	state State
}

// Option customises an Engine.
type Option func(*Engine)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s retry.Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// WithRand sets the source used to draw pause durations.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver registers progress observers.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) { e.observer = Observers(obs) }
}

// WithCollector supplies a pre-seeded collector, e.g. when resuming.
// Its target overrides Config.TargetCount.
func WithCollector(c *collector.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// New creates an engine over page.
func New(page PageAdapter, cfg Config, opts ...Option) (*Engine, error) {
	if page == nil {
		return nil, errors.New("page adapter is required")
	}
	if cfg.StallPauseFactor <= 0 {
		cfg.StallPauseFactor = DefaultConfig().StallPauseFactor
	}
	if cfg.ItemSelector == "" {
		cfg.ItemSelector = DefaultConfig().ItemSelector
	}

	e := &Engine{
		page:     page,
		cfg:      cfg,
		sleeper:  retry.ContextSleeper{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      logger.GetLogger().WithField("component", "pagination"),
		observer: BaseObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.collector == nil {
		e.collector = collector.New(cfg.TargetCount)
	} else {
		e.cfg.TargetCount = e.collector.Target()
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "pagination.New", err)
	}
	return e, nil
}

// Collector exposes the engine's collector, e.g. for checkpointing.
func (e *Engine) Collector() *collector.Collector {
	return e.collector
}

func (e *Engine) transition(to State) {
	if e.state == to {
		return
	}
	from := e.state
	e.state = to
	e.log.DebugWithFields("state change", logger.Fields{"from": from.String(), "to": to.String()})
	e.observer.OnStateChange(from, to)
}

func (e *Engine) finish(res *Result, state State, start time.Time) Result {
	e.transition(state)
	res.State = state
	res.Duration = time.Since(start)
	res.Records = e.collector.Records()
	return *res
}

// Run navigates to url and collects until the target is reached or ctx ends.
//
// A cancelled context yields the partial result with State CANCELLED and a
// nil error. An initial-load timeout yields an empty result with State
// FAILED and an error matching errors.ErrInitialLoad.
func (e *Engine) Run(ctx context.Context, url string) (Result, error) {
	start := time.Now()
	res := Result{}
	cs := e.collector.State()
	e.state = StateLoadingInitial

	if e.collector.Full() {
		return e.finish(&res, StateDone, start), nil
	}

	if err := e.page.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return e.finish(&res, StateCancelled, start), nil
		}
		e.transition(StateFailed)
		return Result{State: StateFailed, Duration: time.Since(start)},
			errs.Wrap(errs.ErrorTypeAdapter, "navigate", err)
	}

	found, err := e.page.WaitForSelector(ctx, e.cfg.ItemSelector, e.cfg.InitialWait)
	if ctx.Err() != nil {
		return e.finish(&res, StateCancelled, start), nil
	}
	if err != nil || !found {
		e.transition(StateFailed)
		loadErr := &errs.Error{
			Type:    errs.ErrorTypeInitialLoad,
			Op:      "wait_initial",
			Message: "no items rendered within " + e.cfg.InitialWait.String(),
			Err:     err,
		}
		return Result{State: StateFailed, Duration: time.Since(start)}, loadErr
	}
	e.log.Info("Search results page loaded")

	cs.LastSignature = e.signature(ctx)
	adapterFailures := 0

	for {
		e.transition(StateScanning)
		res.Passes++

		newInPass, scanFailed := e.scan(ctx, res.Passes)
		if ctx.Err() != nil {
			return e.finish(&res, StateCancelled, start), nil
		}
		if e.collector.Full() {
			e.log.InfoWithFields("Reached target count", logger.Fields{"collected": e.collector.Len()})
			return e.finish(&res, StateDone, start), nil
		}
		if newInPass > 0 {
			cs.ConsecutiveStalls = 0
		}

		e.transition(StateScrolling)
		scrollErr := e.page.ScrollToBottom(ctx)
		if scrollErr != nil && ctx.Err() == nil {
			e.log.WithError(scrollErr).Warn("Scroll failed")
		}
		if err := e.sleeper.Sleep(ctx, e.uniform(e.cfg.ScrollPauseMin, e.cfg.ScrollPauseMax)); err != nil {
			return e.finish(&res, StateCancelled, start), nil
		}
		sig, sigErr := e.page.ScrollHeight(ctx)
		if sigErr != nil {
			if ctx.Err() != nil {
				return e.finish(&res, StateCancelled, start), nil
			}
			e.log.WithError(sigErr).Warn("Reading page height failed")
			sig = cs.LastSignature
		}

		if scanFailed && scrollErr != nil && sigErr != nil {
			adapterFailures++
			if e.cfg.MaxAdapterFailures > 0 && adapterFailures >= e.cfg.MaxAdapterFailures {
				out := e.finish(&res, StateFailed, start)
				return out, errs.New(errs.ErrorTypeAdapter, "run", "page adapter unavailable")
			}
		} else {
			adapterFailures = 0
		}

		if newInPass == 0 && sig == cs.LastSignature {
			res.Stalls++
			if err := e.stall(ctx, &res); err != nil {
				return e.finish(&res, StateCancelled, start), nil
			}
		}
		cs.LastSignature = sig
	}
}

// scan runs one extraction pass and returns the number of newly accepted
// records and whether the item lookup itself failed.
func (e *Engine) scan(ctx context.Context, pass int) (int, bool) {
	items, err := e.page.FindAll(ctx, e.cfg.ItemSelector)
	if err != nil {
		if ctx.Err() == nil {
			e.log.WithError(err).WarnWithFields("Finding items failed", logger.Fields{"pass": pass})
		}
		items = nil
	}

	newInPass, skipped := 0, 0
	for i := len(items) - 1; i >= 0 && !e.collector.Full(); i-- {
		rec, ok := extract.Extract(items[i])
		if !ok {
			skipped++
			continue
		}
		if e.collector.Offer(rec) {
			newInPass++
		}
	}

	stats := PassStats{
		Pass:      pass,
		Found:     len(items),
		New:       newInPass,
		Collected: e.collector.Len(),
		Target:    e.cfg.TargetCount,
	}
	logger.LogPass(e.log, pass, newInPass, stats.Collected, stats.Target)
	if skipped > 0 {
		e.log.DebugWithFields("Skipped unparsable items", logger.Fields{"pass": pass, "skipped": skipped})
	}
	e.observer.OnPass(stats)
	return newInPass, err != nil
}

func (e *Engine) stall(ctx context.Context, res *Result) error {
	cs := e.collector.State()
	cs.ConsecutiveStalls++
	e.transition(StateStalled)

	if cs.ConsecutiveStalls >= e.cfg.StallThreshold {
		e.transition(StateLongPause)
		pause := e.uniform(e.cfg.LongPauseMin, e.cfg.LongPauseMax)
		res.LongPauses++
		logger.LogLongPause(e.log, pause, e.collector.Len())
		e.observer.OnLongPause(pause, e.collector.Len())
		if err := e.sleeper.Sleep(ctx, pause); err != nil {
			return err
		}
		cs.ConsecutiveStalls = 0
		e.log.Info("Resuming scroll attempts")
		return nil
	}

	f := e.cfg.StallPauseFactor
	pause := e.uniform(scale(e.cfg.ScrollPauseMin, f), scale(e.cfg.ScrollPauseMax, f))
	logger.LogStall(e.log, cs.ConsecutiveStalls, e.cfg.StallThreshold, pause)
	e.observer.OnStall(cs.ConsecutiveStalls, e.cfg.StallThreshold, pause)
	return e.sleeper.Sleep(ctx, pause)
}

func (e *Engine) signature(ctx context.Context) int {
	sig, err := e.page.ScrollHeight(ctx)
	if err != nil {
		e.log.WithError(err).Warn("Reading initial page height failed")
		return 0
	}
	return sig
}

// uniform draws a duration in [min, max].
func (e *Engine) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(e.rng.Int63n(int64(max-min)+1))
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
