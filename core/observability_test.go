package core

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) hasCounter(name string, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, counter := range m.counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

// logSink is shared by a captureLogger and every child derived from it.
type logSink struct {
	mu      sync.Mutex
	records []capturedLog
}

type captureLogger struct {
	sink   *logSink
	fields map[string]any
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{sink: &logSink{}, fields: map[string]any{}}
}

func (l *captureLogger) child(extra map[string]any) *captureLogger {
	fields := maps.Clone(l.fields)
	maps.Copy(fields, extra)
	return &captureLogger{sink: l.sink, fields: fields}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger { return l.child(fields) }
func (l *captureLogger) WithContext(context.Context) Logger     { return l.child(nil) }

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args) }

func (l *captureLogger) record(level, msg string, args []any) {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	l.sink.mu.Lock()
	l.sink.records = append(l.sink.records, capturedLog{level: level, msg: msg, fields: fields})
	l.sink.mu.Unlock()
}

func (l *captureLogger) snapshot() []capturedLog {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return slices.Clone(l.sink.records)
}

func TestHostObservability_SuccessAndFailure(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	factory := &fakeFactory{}
	host, err := NewHost(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
		WithClientFactory(factory.build),
	)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close(context.Background())

	ctx := context.Background()
	if env := host.GetChats(ctx); env.Success {
		t.Fatalf("expected get_chats to fail before wrapper creation")
	}
	if env := host.CreateWrapper(ctx, "+79001234567", t.TempDir()); !env.Success {
		t.Fatalf("create wrapper: %#v", env)
	}
	if env := host.RequestCode(ctx, "", ""); !env.Success {
		t.Fatalf("request code: %#v", env)
	}

	if !metrics.hasCounter("maxbridge.get_chats.total", "failure") {
		t.Fatalf("expected get_chats failure counter")
	}
	if !metrics.hasCounter("maxbridge.request_code.total", "success") {
		t.Fatalf("expected request_code success counter")
	}

	var sawFailure, sawSuccess bool
	for _, record := range logger.snapshot() {
		switch record.msg {
		case "get_chats failed":
			sawFailure = record.level == "error" && record.fields["error_code"] == HostErrorWrapperNotInitialized
		case "request_code succeeded":
			sawSuccess = record.level == "info" && record.fields["bridge_mode"] == "in_place"
		}
	}
	if !sawFailure {
		t.Fatalf("expected error log for get_chats failure: %#v", logger.snapshot())
	}
	if !sawSuccess {
		t.Fatalf("expected info log with bridge mode for request_code: %#v", logger.snapshot())
	}
}

func TestHostObservability_RedactsLoginSecrets(t *testing.T) {
	logger := newCaptureLogger()
	factory := &fakeFactory{}
	host, err := NewHost(DefaultConfig(),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithClientFactory(factory.build),
	)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	defer host.Close(context.Background())

	ctx := context.Background()
	host.CreateWrapper(ctx, "+79001234567", t.TempDir())
	env := host.LoginWithCode(ctx, "temp-1", "123456")
	if !env.Success {
		t.Fatalf("login: %#v", env)
	}
	for _, record := range logger.snapshot() {
		for key, value := range record.fields {
			if value == "123456" || value == "temp-1" {
				t.Fatalf("expected %s to be redacted in %q", key, record.msg)
			}
		}
	}
}
