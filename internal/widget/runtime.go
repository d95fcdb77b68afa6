package widget

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/weather-by-city/internal/geo"
	"github.com/i474232898/weather-by-city/internal/notify"
	"github.com/i474232898/weather-by-city/internal/weather"
)

// ErrStopped is returned by Dispatch once Run has returned.
var ErrStopped = errors.New("widget runtime stopped")

// Lookuper performs a single weather lookup. *weather.Service satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, q weather.Query) (weather.Snapshot, error)
}

// Gauge tracks fetches in flight. prometheus.Gauge satisfies it.
type Gauge interface {
	Inc()
	Dec()
}

type envelope struct {
	ev      Event
	applied chan State
}

// Runtime owns the widget State. A single goroutine (Run) applies every event,
// so Update never runs concurrently. Lookups and location requests run on their
// own goroutines and report back as events.
type Runtime struct {
	lookup   Lookuper
	locator  geo.Locator
	notifier notify.Notifier
	clock    clockwork.Clock
	inFlight Gauge
	logger   *zap.Logger

	events chan envelope
	done   chan struct{}

	mu    sync.RWMutex
	state State

	// owned by the Run goroutine
	cancelFetch context.CancelFunc
	workers     sync.WaitGroup
	runOnce     sync.Once
}

// RuntimeOption customizes a Runtime.
type RuntimeOption func(*Runtime)

// WithClock sets the clock used to timestamp notifications.
func WithClock(c clockwork.Clock) RuntimeOption {
	return func(r *Runtime) { r.clock = c }
}

// WithInFlightGauge reports the number of running lookups.
func WithInFlightGauge(g Gauge) RuntimeOption {
	return func(r *Runtime) { r.inFlight = g }
}

// NewRuntime wires the widget to its collaborators. A nil locator behaves as
// geo.Unsupported and a nil notifier discards notifications.
func NewRuntime(lookup Lookuper, locator geo.Locator, notifier notify.Notifier, logger *zap.Logger, opts ...RuntimeOption) *Runtime {
	if locator == nil {
		locator = geo.Unsupported{}
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runtime{
		lookup:   lookup,
		locator:  locator,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
		logger:   logger.Named("widget"),
		events:   make(chan envelope, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a copy of the current UI state.
func (r *Runtime) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Dispatch queues ev and waits until it has been applied. Effects such as
// fetches may still be running when it returns.
func (r *Runtime) Dispatch(ctx context.Context, ev Event) (State, error) {
	env := envelope{ev: ev, applied: make(chan State, 1)}
	select {
	case r.events <- env:
	case <-r.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case s := <-env.applied:
		return s, nil
	case <-r.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// post queues ev without waiting; used by workers reporting completions.
func (r *Runtime) post(ev Event) {
	select {
	case r.events <- envelope{ev: ev}:
	case <-r.done:
	}
}

// Run mounts the widget and processes events until ctx is cancelled. It cancels
// any lookup still in flight and waits for workers before returning.
func (r *Runtime) Run(ctx context.Context) error {
	started := false
	r.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("widget runtime already started")
	}

	r.logger.Info("widget mounted")
	r.apply(ctx, Mounted{})

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case env := <-r.events:
			s := r.apply(ctx, env.ev)
			if env.applied != nil {
				env.applied <- s
			}
		}
	}
}

func (r *Runtime) shutdown() {
	close(r.done)
	if r.cancelFetch != nil {
		r.cancelFetch()
		r.cancelFetch = nil
	}
	r.workers.Wait()
	r.logger.Info("widget stopped")
}

func (r *Runtime) apply(ctx context.Context, ev Event) State {
	r.mu.Lock()
	next, effects := Update(r.state, ev)
	r.state = next
	r.mu.Unlock()

	for _, eff := range effects {
		r.run(ctx, eff)
	}
	return next
}

func (r *Runtime) run(ctx context.Context, eff Effect) {
	switch eff := eff.(type) {
	case Notify:
		r.notifier.Notify(notify.New(eff.Level, eff.Message, r.clock.Now()))

	case Fetch:
		r.startFetch(ctx, eff)

	case Locate:
		r.workers.Add(1)
		go func() {
			defer r.workers.Done()
			coords, err := r.locator.Locate(ctx)
			if err != nil {
				r.logger.Warn("location unavailable", zap.Error(err))
				r.post(LocationFailed{Err: err})
				return
			}
			r.post(LocationResolved{Coords: coords})
		}()
	}
}

// startFetch cancels the previous lookup, if any, so only the newest request
// can complete; Update also drops answers with a stale sequence number.
func (r *Runtime) startFetch(ctx context.Context, f Fetch) {
	if r.cancelFetch != nil {
		r.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancelFetch = cancel

	r.logger.Debug("fetch started",
		zap.Uint64("seq", f.Seq),
		zap.String("kind", f.Query.Kind()),
		zap.String("query", f.Query.String()))

	if r.inFlight != nil {
		r.inFlight.Inc()
	}
	r.workers.Add(1)
	go func() {
		defer r.workers.Done()
		defer cancel()
		if r.inFlight != nil {
			defer r.inFlight.Dec()
		}

		var (
			snap weather.Snapshot
			err  = weather.ErrNoProvider
		)
		if r.lookup != nil {
			snap, err = r.lookup.Lookup(fetchCtx, f.Query)
		}
		if err != nil {
			r.post(FetchFailed{Seq: f.Seq, Query: f.Query, Quiet: f.Quiet, Err: err})
			return
		}
		r.post(FetchSucceeded{Seq: f.Seq, Query: f.Query, Quiet: f.Quiet, Snapshot: snap})
	}()
}
