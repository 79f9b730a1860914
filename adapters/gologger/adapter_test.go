package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolvePrefersProviderOverLogger(t *testing.T) {
	direct := &capturingLogger{id: "direct"}
	fromProvider := &capturingLogger{id: "provider"}

	testCases := []struct {
		name     string
		provider glog.LoggerProvider
		logger   glog.Logger
		wantID   string
	}{
		{name: "provider wins", provider: &capturingProvider{logger: fromProvider}, logger: direct, wantID: "provider"},
		{name: "logger only", logger: direct, wantID: "direct"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider, logger := Resolve("maxbridge.host", tc.provider, tc.logger)
			if provider == nil {
				t.Fatalf("expected a provider")
			}
			if got := logger.(*capturingLogger).id; got != tc.wantID {
				t.Fatalf("expected %q logger, got %q", tc.wantID, got)
			}
		})
	}

	if _, logger := Resolve("maxbridge.host", nil, nil); logger == nil {
		t.Fatalf("expected nop logger when nothing is configured")
	}
}

func TestResolveForJobForwardsToHostLogger(t *testing.T) {
	hostLogger := &capturingLogger{id: "host"}

	_, _, jobProvider, jobLogger := ResolveForJob("maxbridge.bridge", &capturingProvider{logger: hostLogger}, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job provider and logger")
	}

	jobProvider.GetLogger("maxbridge.bridge").Info("job started", "job_id", "maxbridge.bridge.get_chats")

	if hostLogger.lastInfo.msg != "job started" {
		t.Fatalf("expected forwarded message, got %q", hostLogger.lastInfo.msg)
	}
	if args := hostLogger.lastInfo.args; len(args) != 2 || args[0] != "job_id" || args[1] != "maxbridge.bridge.get_chats" {
		t.Fatalf("expected forwarded fields, got %#v", args)
	}
}

func TestNamedFallsBackWithoutProvider(t *testing.T) {
	fallback := &capturingLogger{id: "fallback"}
	if got := Named(nil, "maxbridge.store", fallback); got != fallback {
		t.Fatalf("expected fallback logger, got %#v", got)
	}
	providerLogger := &capturingLogger{id: "provider"}
	if got := Named(&capturingProvider{logger: providerLogger}, "maxbridge.store", fallback); got != providerLogger {
		t.Fatalf("expected provider logger, got %#v", got)
	}
	if Named(nil, "maxbridge", nil) == nil {
		t.Fatalf("expected nop logger when nothing is configured")
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{
		msg:  msg,
		args: append([]any(nil), args...),
	}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
