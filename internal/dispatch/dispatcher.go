package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ysy950803/tgflow/internal/client"
	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/session"
)

// State of the dispatch loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Handler processes one dispatched update. It runs as its own goroutine;
// errors and panics are reported to the error sink and never reach the loop.
type Handler func(ctx context.Context, c *client.Client, u client.Update) error

// ErrorSink receives handler failures. taskID identifies the handler task in
// diagnostics.
type ErrorSink func(taskID string, err error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxInFlight bounds concurrently running handler tasks. The source
// behavior is unbounded spawning; a bound is a deliberate deviation for
// admission control under high update rates. When the limit is reached the
// loop blocks handoff rather than dropping updates, preserving handoff
// order. Zero means unbounded.
func WithMaxInFlight(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.sem = make(chan struct{}, n)
		}
	}
}

// WithErrorSink replaces the default zerolog error sink.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) {
		d.onError = sink
	}
}

// Dispatcher drives the update loop: it races the shutdown signal against
// the next decoded update, hands each update to a detached handler task, and
// persists the session exactly once on the graceful shutdown path.
type Dispatcher struct {
	client  *client.Client
	store   session.Store
	handler Handler
	onError ErrorSink
	sem     chan struct{}

	state      atomic.Int32
	dispatched atomic.Uint64
	failed     atomic.Uint64
}

func New(c *client.Client, store session.Store, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  c,
		store:   store,
		handler: handler,
	}
	d.onError = func(taskID string, err error) {
		log.Err(err).Str("task", taskID).Msg("update handler failed")
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State reports the loop state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Dispatched reports how many handler tasks have been handed off.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}

// Failed reports how many handler tasks ended in an error or panic.
func (d *Dispatcher) Failed() uint64 {
	return d.failed.Load()
}

type fetchResult struct {
	upd client.Update
	err error
}

// Run drives the loop until ctx is cancelled or the transport fails.
//
// On cancellation the loop drains: it stops accepting updates, persists the
// session once, and returns nil (or the save error). It does not wait for
// in-flight handler tasks; they complete on their own and a task still
// running at shutdown may finish after the session save. Callers needing
// wait-for-all semantics must track completion themselves.
//
// A transport failure is fatal: it is returned to the caller with no
// persistence step, and recovery (reconnect and resume) is the caller's.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return errors.ErrDispatcherClosed
	}

	// The fetch context is deliberately not derived from ctx: cancellation
	// must be observed by the race below, not surface as a fetch error.
	fetchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan fetchResult)
	go d.pump(fetchCtx, results)

	log.Info().Msg("update dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			d.state.Store(int32(StateDraining))
			log.Info().
				Uint64("dispatched", d.dispatched.Load()).
				Msg("shutdown requested, draining dispatch loop")
			err := d.persist()
			d.state.Store(int32(StateStopped))
			return err
		case r := <-results:
			if r.err != nil {
				d.state.Store(int32(StateStopped))
				log.Err(r.err).Msg("update stream failed, dispatch loop exiting")
				return r.err
			}
			d.handoff(ctx, r.upd)
		}
	}
}

func (d *Dispatcher) pump(ctx context.Context, out chan<- fetchResult) {
	for {
		upd, err := d.client.NextUpdate(ctx)
		select {
		case out <- fetchResult{upd: upd, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// handoff spawns the handler task and returns without waiting for it.
// Handler tasks get a context detached from the loop's: a running task is
// never forcibly cancelled by shutdown.
func (d *Dispatcher) handoff(ctx context.Context, upd client.Update) {
	if d.sem != nil {
		d.sem <- struct{}{}
	}
	d.dispatched.Add(1)

	taskID := uuid.NewString()[:8]
	taskCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.failed.Add(1)
				d.onError(taskID, fmt.Errorf("handler panic: %v", r))
			}
			if d.sem != nil {
				<-d.sem
			}
		}()
		if err := d.handler(taskCtx, d.client, upd); err != nil {
			d.failed.Add(1)
			d.onError(taskID, err)
		}
	}()
}

func (d *Dispatcher) persist() error {
	if err := d.store.Save(d.client.Session()); err != nil {
		log.Err(err).Msg("persist session at shutdown failed")
		return err
	}
	log.Info().Msg("session persisted")
	return nil
}
