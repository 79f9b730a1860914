package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Mode string

const (
	ModeInPlace  Mode = "in_place"
	ModeIsolated Mode = "isolated"
)

// Operation is asynchronous work executed by a scheduler.
type Operation[T any] func(ctx context.Context) (T, error)

// Bridge exposes blocking entry points over scheduler-driven operations.
//
// A call made outside any bridged operation drives the lazily created primary
// scheduler. A call made while the primary is driven, or from inside a
// bridged operation, runs on an isolated worker scheduler that is stopped once
// the operation completes. Ownership of the primary is released before the
// caller observes the result.
type Bridge struct {
	mu      sync.Mutex
	primary *scheduler
	closed  bool

	driving atomic.Bool
	workers atomic.Uint64

	logger glog.Logger
	hooks  []Hook
}

type Option func(*Bridge)

func WithLogger(logger glog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithHook(hook Hook) Option {
	return func(b *Bridge) {
		if hook != nil {
			b.hooks = append(b.hooks, hook)
		}
	}
}

func New(opts ...Option) *Bridge {
	b := &Bridge{logger: glog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}
	b.logger = glog.Ensure(b.logger)
	return b
}

// Driving reports whether the primary scheduler is currently owned by a call.
func (b *Bridge) Driving() bool {
	if b == nil {
		return false
	}
	return b.driving.Load()
}

// Close stops the primary scheduler and waits for queued operations and their
// hooks to finish. Later submissions fail.
func (b *Bridge) Close() error {
	return b.CloseContext(context.Background())
}

// CloseContext is Close for callers that may be running on a scheduler. When
// ctx belongs to a bridged operation or hook, the primary is stopped without
// waiting, since the caller may be the goroutine that drains it.
func (b *Bridge) CloseContext(ctx context.Context) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.closed = true
	primary := b.primary
	b.primary = nil
	b.mu.Unlock()

	if primary == nil {
		return nil
	}
	primary.stop()
	if _, inside := SchedulerID(ctx); !inside {
		<-primary.done
	}
	return nil
}

// Handle tracks a submitted operation.
type Handle[T any] struct {
	name      string
	mode      Mode
	scheduler string
	done      chan struct{}
	value     T
	err       error
}

// Wait blocks until the operation completes. There is no cancellation: the
// operation always runs to completion or failure.
func (h *Handle[T]) Wait() (T, error) {
	<-h.done
	return h.value, h.err
}

func (h *Handle[T]) Done() <-chan struct{} { return h.done }

func (h *Handle[T]) Mode() Mode { return h.mode }

func (h *Handle[T]) Name() string { return h.name }

func (h *Handle[T]) Scheduler() string { return h.scheduler }

// Run submits op and blocks until it completes. Failures returned by op are
// returned unchanged.
func Run[T any](ctx context.Context, b *Bridge, name string, op Operation[T]) (T, error) {
	handle, err := Submit(ctx, b, name, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return handle.Wait()
}

// Submit schedules op and returns a handle to join on.
func Submit[T any](ctx context.Context, b *Bridge, name string, op Operation[T]) (*Handle[T], error) {
	if b == nil {
		return nil, newBridgeError(name, "bridge is not configured", nil)
	}
	if op == nil {
		return nil, newBridgeError(name, "operation is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sched, mode, err := b.acquire(ctx, name)
	if err != nil {
		return nil, err
	}

	handle := &Handle[T]{
		name:      name,
		mode:      mode,
		scheduler: sched.id,
		done:      make(chan struct{}),
	}
	task := func() {
		// Hooks share the scheduler marker so calls they make back into the
		// bridge land on an isolated worker instead of this goroutine.
		ctx := withScheduler(ctx, sched)
		event := Event{Name: name, Mode: mode, Scheduler: sched.id, StartedAt: time.Now().UTC()}
		b.notifyStart(ctx, event)

		value, runErr := invoke(ctx, name, op)

		event.Duration = time.Since(event.StartedAt)
		event.Err = runErr
		handle.value, handle.err = value, runErr
		b.release(sched, mode)
		close(handle.done)

		if runErr != nil {
			b.notifyFailure(ctx, event)
			return
		}
		b.notifySuccess(ctx, event)
	}

	if !sched.submit(task) {
		b.release(sched, mode)
		return nil, newBridgeError(name, fmt.Sprintf("scheduler %s is stopped", sched.id), nil)
	}
	return handle, nil
}

func (b *Bridge) acquire(ctx context.Context, name string) (*scheduler, Mode, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, "", newBridgeError(name, "bridge is closed", nil)
	}

	if owner, inside := SchedulerID(ctx); inside {
		b.logger.Debug("bridge reentrant call, spawning isolated worker", "operation", name, "owner", owner)
		return b.spawnWorker(), ModeIsolated, nil
	}
	if !b.driving.CompareAndSwap(false, true) {
		b.logger.Debug("bridge primary scheduler busy, spawning isolated worker", "operation", name)
		return b.spawnWorker(), ModeIsolated, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.driving.Store(false)
		return nil, "", newBridgeError(name, "bridge is closed", nil)
	}
	if b.primary == nil {
		b.primary = newScheduler("primary")
	}
	return b.primary, ModeInPlace, nil
}

func (b *Bridge) spawnWorker() *scheduler {
	id := fmt.Sprintf("worker-%d", b.workers.Add(1))
	return newScheduler(id)
}

func (b *Bridge) release(sched *scheduler, mode Mode) {
	switch mode {
	case ModeIsolated:
		sched.stop()
	default:
		b.driving.Store(false)
	}
}

func invoke[T any](ctx context.Context, name string, op Operation[T]) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			var zero T
			value = zero
			err = newBridgeError(name, fmt.Sprintf("operation panicked: %v", recovered), map[string]any{
				"panic": fmt.Sprint(recovered),
			})
		}
	}()
	return op(ctx)
}
