// Package scheduler keeps the result cache fresh: one refresh at startup, then
// one every interval, plus on-demand refreshes that share any cycle already
// in flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/finsum/internal/cache"
	"github.com/seenimoa/finsum/internal/pipeline"
	"github.com/seenimoa/finsum/pkg/models"
)

// Defaults used when options are not supplied.
const (
	DefaultInterval     = 30 * time.Minute
	DefaultMaxAge       = 30 * time.Minute
	DefaultCycleTimeout = 10 * time.Minute
)

const refreshKey = "refresh"

var (
	// ErrRefreshFailed wraps any error or panic that aborted a refresh cycle.
	ErrRefreshFailed = errors.New("scheduler: refresh failed")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler: already started")
	// ErrStopped is returned by Refresh after Stop.
	ErrStopped = errors.New("scheduler: stopped")
)

// State is the refresher's lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
)

// Analyzer produces per-symbol analyses. Satisfied by *pipeline.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, symbols []string) (*pipeline.Result, error)
}

// Listener is called after every successful refresh.
type Listener func(*models.Snapshot)

// Status is a point-in-time view of the refresher.
type Status struct {
	State       State      `json:"state"`
	Symbols     []string   `json:"symbols"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	Interval    string     `json:"interval"`
}

// Refresher owns the refresh cycle for the configured symbols.
type Refresher struct {
	analyzer     Analyzer
	results      *cache.ResultCache
	symbols      []string
	interval     time.Duration
	maxAge       time.Duration
	cycleTimeout time.Duration
	log          *zap.Logger
	now          func() time.Time

	cron    *cron.Cron
	entryID cron.EntryID
	group   singleflight.Group
	busy    atomic.Bool
	cycles  sync.WaitGroup

	mu        sync.Mutex
	lifetime  context.Context
	started   bool
	stopped   bool
	listeners []Listener
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithInterval sets the period between scheduled refreshes.
func WithInterval(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxAge sets how old the snapshot may get before Current refreshes it.
func WithMaxAge(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// WithCycleTimeout bounds a single refresh cycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.cycleTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Refresher) { r.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// New creates a Refresher for symbols. Nothing runs until Start or Refresh.
func New(analyzer Analyzer, results *cache.ResultCache, symbols []string, opts ...Option) *Refresher {
	r := &Refresher{
		analyzer:     analyzer,
		results:      results,
		symbols:      append([]string(nil), symbols...),
		interval:     DefaultInterval,
		maxAge:       DefaultMaxAge,
		cycleTimeout: DefaultCycleTimeout,
		log:          zap.NewNop(),
		now:          time.Now,
		lifetime:     context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(r.log.Named("cron")))
	r.cron = cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)
	return r
}

// OnRefresh registers l to be called after each successful refresh.
func (r *Refresher) OnRefresh(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Start performs one refresh immediately, then schedules one every interval.
// A failed initial refresh is logged and does not prevent scheduling.
// Cancelling ctx aborts any cycle in progress.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.lifetime = ctx
	r.mu.Unlock()

	r.log.Info("performing initial data refresh", zap.Strings("symbols", r.symbols))
	if _, err := r.Refresh(ctx); err != nil {
		r.log.Warn("initial refresh failed, serving without data until the next cycle", zap.Error(err))
	}

	id := r.cron.Schedule(cron.Every(r.interval), cron.FuncJob(func() {
		_, _ = r.Refresh(r.baseContext())
	}))
	r.mu.Lock()
	r.entryID = id
	r.mu.Unlock()
	r.cron.Start()
	r.log.Info("refresh scheduler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop halts the schedule and waits for any running cycle to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.cycles.Wait()
	r.log.Info("refresh scheduler stopped")
}

// Refresh runs a cycle, or joins the one already running. The cycle itself
// is bound to the scheduler's lifetime, so a cancelled ctx only stops the
// caller from waiting.
func (r *Refresher) Refresh(ctx context.Context) (*models.Snapshot, error) {
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		return r.cycle()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current returns the cached snapshot. When the cache is empty or older than
// the max age it first refreshes; on failure the stale snapshot (possibly nil)
// is returned.
func (r *Refresher) Current(ctx context.Context) *models.Snapshot {
	if r.results.Stale(r.maxAge, r.now()) {
		r.log.Info("cached data missing or stale, refreshing")
		if _, err := r.Refresh(ctx); err != nil {
			r.log.Warn("refresh on read failed, serving cached data", zap.Error(err))
		}
	}
	return r.results.Get()
}

// State reports whether a cycle is running.
func (r *Refresher) State() State {
	if r.busy.Load() {
		return StateRefreshing
	}
	return StateIdle
}

// Status returns the state with refresh timing.
func (r *Refresher) Status() Status {
	st := Status{
		State:    r.State(),
		Symbols:  append([]string(nil), r.symbols...),
		Interval: r.interval.String(),
	}
	if t, ok := r.results.LastRefresh(); ok {
		st.LastRefresh = &t
	}
	r.mu.Lock()
	id := r.entryID
	r.mu.Unlock()
	if id != 0 {
		if next := r.cron.Entry(id).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}

func (r *Refresher) baseContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lifetime
}

func (r *Refresher) cycle() (snap *models.Snapshot, err error) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil, ErrStopped
	}
	r.cycles.Add(1)
	parent := r.lifetime
	r.mu.Unlock()
	defer r.cycles.Done()

	r.busy.Store(true)
	defer r.busy.Store(false)

	id := uuid.NewString()
	log := r.log.With(zap.String("cycle_id", id))
	start := r.now()

	defer func() {
		if rec := recover(); rec != nil {
			snap = nil
			err = fmt.Errorf("%w: panic: %v", ErrRefreshFailed, rec)
			log.Error("refresh panicked, keeping previous data", zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()

	log.Info("refreshing stock data", zap.Int("symbols", len(r.symbols)))

	ctx, cancel := context.WithTimeout(parent, r.cycleTimeout)
	defer cancel()

	res, err := r.analyzer.Analyze(ctx, r.symbols)
	if err == nil {
		err = res.Err()
	}
	if err != nil {
		log.Error("refresh failed, keeping previous data", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	finished := r.now()
	snap = &models.Snapshot{
		CycleID:     id,
		Symbols:     res.Symbols,
		Stocks:      res.Stocks,
		RefreshedAt: finished,
		Duration:    finished.Sub(start),
	}
	r.results.Replace(snap)
	log.Info("stock data refreshed",
		zap.Int("stocks", len(snap.Stocks)),
		zap.Duration("took", snap.Duration),
	)

	r.notify(snap, log)
	return snap, nil
}

func (r *Refresher) notify(snap *models.Snapshot, log *zap.Logger) {
	r.mu.Lock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("refresh listener panicked", zap.Any("panic", rec))
				}
			}()
			l(snap)
		}()
	}
}
