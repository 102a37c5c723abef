// Package refresh owns the single-flight scheduling of snapshot builds: at
// most one build runs at a time, operator-triggered requests reject rather
// than queue when one is already in flight, and an internal schedule loop
// enqueues its own periodic runs behind the same gate.
package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/m3undle/lineup/internal/events"
	"github.com/m3undle/lineup/internal/metrics"
	"github.com/m3undle/lineup/internal/snapshot"
)

var tracer = otel.Tracer("github.com/m3undle/lineup/internal/refresh")

// ErrBusy is returned by TriggerFull/TriggerBuildOnly when a run is already
// in flight. Callers surface this as a conflict to the operator rather than
// queuing behind it — that queuing behavior is reserved for the internal
// schedule loop.
var ErrBusy = errors.New("refresh: a run is already in progress")

type queuedRun struct {
	buildOnly bool
}

// Coordinator runs Builder.BuildFull / Builder.BuildOnly under a binary
// execution gate, publishing RefreshStarted/RefreshCompleted on Events for
// every accepted run.
type Coordinator struct {
	Builder *snapshot.Builder
	Events  *events.Bus[any]

	Interval     time.Duration
	RunTimeout   time.Duration
	StartupDelay time.Duration

	gate  chan struct{}
	queue *events.Bus[queuedRun]

	// runCtx holds the context.Context derived from Run's ctx while Run is
	// executing, so a triggered run started outside Run's own goroutines
	// still observes the process-wide stop signal. nil (via baseContext)
	// when Run isn't running.
	runCtx atomic.Pointer[context.Context]

	// wg tracks every runAndRelease goroutine started by trigger, so Run
	// doesn't return until externally-triggered runs have observed
	// cancellation and exited, not just its own two loops.
	wg sync.WaitGroup
}

// NewCoordinator returns a Coordinator with its gate initially free.
func NewCoordinator(builder *snapshot.Builder, bus *events.Bus[any], interval, runTimeout, startupDelay time.Duration) *Coordinator {
	c := &Coordinator{
		Builder: builder, Events: bus,
		Interval: interval, RunTimeout: runTimeout, StartupDelay: startupDelay,
		gate:  make(chan struct{}, 1),
		queue: events.NewBus[queuedRun](1),
	}
	c.gate <- struct{}{}
	return c
}

func (c *Coordinator) tryAcquire() bool {
	select {
	case <-c.gate:
		return true
	default:
		return false
	}
}

func (c *Coordinator) release() {
	select {
	case c.gate <- struct{}{}:
	default:
	}
}

// IsBusy reports whether a run currently holds the gate.
func (c *Coordinator) IsBusy() bool {
	select {
	case tok := <-c.gate:
		c.gate <- tok
		return false
	default:
		return true
	}
}

// TriggerFull attempts to start a full refresh immediately, returning
// ErrBusy if one is already running.
func (c *Coordinator) TriggerFull(ctx context.Context) error {
	return c.trigger(ctx, false)
}

// TriggerBuildOnly attempts to start a build-only pass immediately,
// returning ErrBusy if a run is already in progress.
func (c *Coordinator) TriggerBuildOnly(ctx context.Context) error {
	return c.trigger(ctx, true)
}

func (c *Coordinator) trigger(ctx context.Context, buildOnly bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.tryAcquire() {
		metrics.IncRefreshTriggerRejected()
		return ErrBusy
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runAndRelease(c.baseContext(), buildOnly)
	}()
	return nil
}

// baseContext returns the context.Context a freshly-triggered run should be
// scoped under: Run's ctx while Run is executing, or context.Background()
// if it isn't — trigger can be called independently of Run's lifecycle, but
// once Run is up every run it starts shares its cancellation.
func (c *Coordinator) baseContext() context.Context {
	if p := c.runCtx.Load(); p != nil {
		return *p
	}
	return context.Background()
}

// Run starts the trigger-consumer loop and the interval schedule loop side
// by side, returning once ctx is canceled or either loop errors, and only
// after every run the two loops or an external trigger started has
// observed that cancellation and exited.
func (c *Coordinator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	c.runCtx.Store(&gctx)
	defer c.runCtx.Store(nil)

	sub := c.queue.Subscribe()
	defer sub.Close()

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case req := <-sub.C():
				if c.tryAcquire() {
					c.runAndRelease(gctx, req.buildOnly)
				}
			}
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-time.After(c.StartupDelay):
		}
		c.queue.Publish(queuedRun{buildOnly: false})

		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				c.queue.Publish(queuedRun{buildOnly: false})
			}
		}
	})

	err := g.Wait()
	c.wg.Wait()
	return err
}

// runAndRelease assumes the caller has already acquired the gate and
// releases it on every exit path. ctx bounds the run's lifetime beyond
// RunTimeout: canceling it (Run's stop signal) cancels the run in flight.
func (c *Coordinator) runAndRelease(ctx context.Context, buildOnly bool) {
	defer c.release()

	runCtx, cancel := context.WithTimeout(ctx, c.RunTimeout)
	defer cancel()

	runType := "full"
	if buildOnly {
		runType = "build_only"
	}

	runCtx, span := tracer.Start(runCtx, "refresh.run")
	span.SetAttributes(attribute.String("refresh.run_type", runType))
	defer span.End()

	c.Events.Publish(events.RefreshStarted{BuildOnly: buildOnly})
	started := time.Now()

	var err error
	if buildOnly {
		err = c.Builder.BuildOnly(runCtx)
	} else {
		err = c.Builder.BuildFull(runCtx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	metrics.ObserveRefresh(runType, err == nil, time.Since(started))

	completed := events.RefreshCompleted{Succeeded: err == nil}
	if err != nil {
		completed.ErrorSummary = err.Error()
	}
	c.Events.Publish(completed)
}
