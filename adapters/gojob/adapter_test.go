package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-maxbridge/bridge"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue/worker"
)

func TestToExecutionMessage(t *testing.T) {
	msg := ToExecutionMessage(bridge.Event{Name: "get_chats", Mode: bridge.ModeIsolated, Scheduler: "bridge-1"})
	if msg.JobID != "maxbridge.bridge.get_chats" || msg.ScriptPath != "get_chats" {
		t.Fatalf("unexpected message %#v", msg)
	}
	if msg.Parameters["mode"] != string(bridge.ModeIsolated) || msg.Parameters["scheduler"] != "bridge-1" {
		t.Fatalf("unexpected parameters %#v", msg.Parameters)
	}
}

func TestWorkerHookAdapterEventMapping(t *testing.T) {
	now := time.Now().UTC().Add(-time.Second)
	hook := &capturingWorkerHook{}
	adapter := NewWorkerHookAdapter(hook)

	adapter.OnFailure(context.Background(), bridge.Event{
		Name:      "start_client",
		StartedAt: now,
		Duration:  250 * time.Millisecond,
		Err:       errors.New("connect failed"),
	})
	if hook.failures != 1 {
		t.Fatalf("expected one failure event, got %d", hook.failures)
	}
	last := hook.last
	if last.Message == nil || last.Message.JobID != JobIDPrefix+"start_client" {
		t.Fatalf("expected job id mapping, got %#v", last.Message)
	}
	if last.Attempt != 1 || last.Duration != 250*time.Millisecond || !last.StartedAt.Equal(now) {
		t.Fatalf("unexpected event mapping %#v", last)
	}
	if last.Err == nil || last.Err.Error() != "connect failed" {
		t.Fatalf("expected error mapping")
	}

	adapter.OnStart(context.Background(), bridge.Event{Name: "get_chats"})
	adapter.OnSuccess(context.Background(), bridge.Event{Name: "get_chats"})
	if hook.starts != 1 || hook.successes != 1 {
		t.Fatalf("expected start and success events, got %d %d", hook.starts, hook.successes)
	}

	var nilAdapter *WorkerHookAdapter
	nilAdapter.OnStart(context.Background(), bridge.Event{})
}

func TestFailureEnqueuerPublishesFailures(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	hook := NewFailureEnqueuer(enqueuer, nil)

	hook.OnSuccess(context.Background(), bridge.Event{Name: "get_chats"})
	if enqueuer.last != nil {
		t.Fatalf("successes must not be enqueued")
	}
	hook.OnFailure(context.Background(), bridge.Event{Name: "get_messages", Err: errors.New("timeout")})
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDPrefix+"get_messages" {
		t.Fatalf("expected failure to be enqueued, got %#v", enqueuer.last)
	}
	if enqueuer.last.Parameters["error"] != "timeout" {
		t.Fatalf("expected error parameter, got %#v", enqueuer.last.Parameters)
	}
}

func TestFailureEnqueuerSwallowsEnqueueErrors(t *testing.T) {
	hook := NewFailureEnqueuer(&stubQueueEnqueuer{err: errors.New("queue down")}, nil)
	hook.OnFailure(context.Background(), bridge.Event{Name: "stop_client"})
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
	err  error
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if s.err != nil {
		return s.err
	}
	s.last = msg
	return nil
}

type capturingWorkerHook struct {
	last      worker.Event
	starts    int
	successes int
	failures  int
}

func (h *capturingWorkerHook) OnStart(_ context.Context, event worker.Event) {
	h.starts++
	h.last = event
}

func (h *capturingWorkerHook) OnSuccess(_ context.Context, event worker.Event) {
	h.successes++
	h.last = event
}

func (h *capturingWorkerHook) OnFailure(_ context.Context, event worker.Event) {
	h.failures++
	h.last = event
}

func (h *capturingWorkerHook) OnRetry(_ context.Context, event worker.Event) {
	h.last = event
}
