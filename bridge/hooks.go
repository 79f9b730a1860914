package bridge

import (
	"context"
	"fmt"
	"time"
)

// Event describes one bridged operation.
type Event struct {
	Name      string
	Mode      Mode
	Scheduler string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Hook observes bridged operations. Hooks run on the scheduler goroutine
// after the caller has been released.
type Hook interface {
	OnStart(ctx context.Context, event Event)
	OnSuccess(ctx context.Context, event Event)
	OnFailure(ctx context.Context, event Event)
}

// HookFuncs adapts plain functions to Hook.
type HookFuncs struct {
	Start   func(context.Context, Event)
	Success func(context.Context, Event)
	Failure func(context.Context, Event)
}

func (h HookFuncs) OnStart(ctx context.Context, event Event) {
	if h.Start != nil {
		h.Start(ctx, event)
	}
}

func (h HookFuncs) OnSuccess(ctx context.Context, event Event) {
	if h.Success != nil {
		h.Success(ctx, event)
	}
}

func (h HookFuncs) OnFailure(ctx context.Context, event Event) {
	if h.Failure != nil {
		h.Failure(ctx, event)
	}
}

func (b *Bridge) notifyStart(ctx context.Context, event Event) {
	b.notify("start", event, func(hook Hook) { hook.OnStart(ctx, event) })
}

func (b *Bridge) notifySuccess(ctx context.Context, event Event) {
	b.notify("success", event, func(hook Hook) { hook.OnSuccess(ctx, event) })
}

func (b *Bridge) notifyFailure(ctx context.Context, event Event) {
	b.notify("failure", event, func(hook Hook) { hook.OnFailure(ctx, event) })
}

// notify runs call for every hook. A panicking hook is logged and skipped so
// the scheduler goroutine keeps serving later operations.
func (b *Bridge) notify(stage string, event Event, call func(Hook)) {
	for _, hook := range b.hooks {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					b.logger.Warn("bridge hook panicked",
						"operation", event.Name,
						"stage", stage,
						"scheduler", event.Scheduler,
						"panic", fmt.Sprint(recovered),
					)
				}
			}()
			call(hook)
		}()
	}
}

var _ Hook = HookFuncs{}
