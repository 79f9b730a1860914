package gojob

import (
	"context"
	"strings"

	"github.com/goliatone/go-maxbridge/bridge"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// JobIDPrefix namespaces bridged operations when they are reported as jobs.
const JobIDPrefix = "maxbridge.bridge."

// ToExecutionMessage describes a bridged operation as a go-job message.
func ToExecutionMessage(event bridge.Event) *job.ExecutionMessage {
	name := strings.TrimSpace(event.Name)
	return &job.ExecutionMessage{
		JobID:      JobIDPrefix + name,
		ScriptPath: name,
		Parameters: map[string]any{
			"mode":      string(event.Mode),
			"scheduler": event.Scheduler,
		},
	}
}

func toWorkerEvent(event bridge.Event) worker.Event {
	return worker.Event{
		Message:   ToExecutionMessage(event),
		Attempt:   1,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

// WorkerHookAdapter feeds bridge lifecycle events into a go-job worker hook,
// so job observers also see operations driven through the bridge.
type WorkerHookAdapter struct {
	hook worker.Hook
}

func NewWorkerHookAdapter(hook worker.Hook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event bridge.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, toWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event bridge.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, toWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event bridge.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, toWorkerEvent(event))
}

// FailureEnqueuer publishes failed bridged operations to a go-job queue for
// out of band inspection. Enqueue errors are logged and dropped.
type FailureEnqueuer struct {
	enqueuer queue.Enqueuer
	logger   glog.Logger
}

func NewFailureEnqueuer(enqueuer queue.Enqueuer, logger glog.Logger) *FailureEnqueuer {
	if logger == nil {
		logger = glog.Nop()
	}
	return &FailureEnqueuer{enqueuer: enqueuer, logger: logger}
}

func (f *FailureEnqueuer) OnStart(context.Context, bridge.Event) {}

func (f *FailureEnqueuer) OnSuccess(context.Context, bridge.Event) {}

func (f *FailureEnqueuer) OnFailure(ctx context.Context, event bridge.Event) {
	if f == nil || f.enqueuer == nil {
		return
	}
	msg := ToExecutionMessage(event)
	if event.Err != nil {
		msg.Parameters["error"] = event.Err.Error()
	}
	if err := f.enqueuer.Enqueue(ctx, msg); err != nil {
		f.logger.Warn("bridge failure not enqueued", "operation", event.Name, "error", err.Error())
	}
}

var (
	_ bridge.Hook = (*WorkerHookAdapter)(nil)
	_ bridge.Hook = (*FailureEnqueuer)(nil)
)
