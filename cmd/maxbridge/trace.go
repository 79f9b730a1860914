package main

import (
	"context"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-maxbridge/adapters/gojob"
	"github.com/goliatone/go-maxbridge/adapters/gologger"
	"github.com/goliatone/go-maxbridge/bridge"
)

// jobLogHook reports bridged operations the way a go-job worker reports jobs.
type jobLogHook struct {
	logger job.Logger
}

func (h jobLogHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Info("job started", "job_id", jobID(event), "attempt", event.Attempt)
}

func (h jobLogHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("job succeeded", "job_id", jobID(event), "duration_ms", event.Duration.Milliseconds())
}

func (h jobLogHook) OnFailure(_ context.Context, event worker.Event) {
	errText := ""
	if event.Err != nil {
		errText = event.Err.Error()
	}
	h.logger.Error("job failed", "job_id", jobID(event), "duration_ms", event.Duration.Milliseconds(), "error", errText)
}

func jobID(event worker.Event) string {
	if event.Message == nil {
		return ""
	}
	return event.Message.JobID
}

func newTraceHook(logger glog.Logger) bridge.Hook {
	_, _, _, jobLogger := gologger.ResolveForJob(gologger.DefaultName+".trace", nil, logger)
	return gojob.NewWorkerHookAdapter(jobLogHook{logger: jobLogger})
}

var _ worker.Hook = jobLogHook{}
