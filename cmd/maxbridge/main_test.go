package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRejectsUnknownOperation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--phone", "+7", "launch_rocket"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "launch_rocket") {
		t.Fatalf("expected unknown operation error, got %v", err)
	}
}

func TestRunRequiresOperation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(nil, &stdout, &stderr); err == nil {
		t.Fatalf("expected missing operation error")
	}
}

func TestRunPrintsEnvelopes(t *testing.T) {
	workDir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := run([]string{"--phone", "+79001234567", "--workdir", workDir, "create_wrapper", "get_chats", "stop_client"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected three envelopes, got %q", stdout.String())
	}
	var created, chats map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &created); err != nil || created["success"] != true {
		t.Fatalf("unexpected create_wrapper envelope %s", lines[0])
	}
	if err := json.Unmarshal([]byte(lines[1]), &chats); err != nil || chats["success"] != false || chats["error"] != "Client not initialized" {
		t.Fatalf("unexpected get_chats envelope %s", lines[1])
	}
}

func TestRunWritesMetrics(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--metrics", "--phone", "+79001234567", "--workdir", t.TempDir(), "create_wrapper", "stop_client"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	output := stderr.String()
	if !strings.Contains(output, "maxbridge_create_wrapper_total") || !strings.Contains(output, `operation="create_wrapper"`) {
		t.Fatalf("expected create_wrapper counter in metrics output, got %q", output)
	}
	if !strings.Contains(output, "maxbridge_stop_client_duration_ms_bucket") {
		t.Fatalf("expected stop_client histogram in metrics output, got %q", output)
	}
}

func TestRunTracesBridgedOperations(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "maxbridge.yaml")
	content := "client:\n  endpoint: ws://127.0.0.1:1/websocket\n  request_timeout_ms: 500\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"--trace", "--config", configPath, "--phone", "+79001234567", "--workdir", dir, "create_wrapper", "request_code"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"success":false`) {
		t.Fatalf("expected failed request_code envelope, got %q", stdout.String())
	}
	output := stderr.String()
	if !strings.Contains(output, "job failed") || !strings.Contains(output, "maxbridge.bridge.request_code") {
		t.Fatalf("expected traced bridge failure, got %q", output)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maxbridge.yaml")
	content := "language: en\nhistory_limit: 10\nclient:\n  request_timeout_ms: 500\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	values, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if values["language"] != "en" || values["history_limit"] != 10 {
		t.Fatalf("unexpected values %#v", values)
	}
	client, ok := values["client"].(map[string]any)
	if !ok || client["request_timeout_ms"] != 500 {
		t.Fatalf("unexpected client section %#v", values["client"])
	}
	if _, err := loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
