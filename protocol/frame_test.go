package protocol

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-maxbridge/wire"
)

func TestEncodeRequest_UsesWireNames(t *testing.T) {
	data, err := EncodeRequest(7, OpAuthRequest, wire.RequestCodePayload{Phone: "+79001234567", Language: "ru"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["ver"] != float64(ProtocolVersion) || decoded["seq"] != float64(7) || decoded["opcode"] != float64(OpAuthRequest) {
		t.Fatalf("unexpected frame header %s", data)
	}
	payload := decoded["payload"].(map[string]any)
	if payload["phone"] != "+79001234567" || payload["type"] != "START_AUTH" || payload["language"] != "ru" {
		t.Fatalf("unexpected payload %s", data)
	}
}

func TestEncodeRequest_NestedUserAgent(t *testing.T) {
	data, err := EncodeRequest(1, OpSessionInit, wire.HandshakePayload{DeviceID: "d1", UserAgent: wire.DefaultUserAgent()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded := map[string]any{}
	_ = json.Unmarshal(data, &decoded)
	payload := decoded["payload"].(map[string]any)
	if payload["deviceId"] != "d1" {
		t.Fatalf("expected deviceId, got %s", data)
	}
	ua := payload["userAgent"].(map[string]any)
	if ua["deviceType"] != "WEB" || ua["appVersion"] != wire.DefaultAppVersion {
		t.Fatalf("unexpected user agent %v", ua)
	}
}

func TestDecodeFrame_KeepsLargeIdentifiers(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"ver":11,"cmd":1,"seq":3,"opcode":49,"payload":{"messages":[{"id":115982368204512345,"text":"hi"}]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Seq != 3 || frame.Opcode != OpChatHistory || frame.Cmd != CmdResponse {
		t.Fatalf("unexpected header %#v", frame)
	}
	messages := parseMessages(frame.Payload, 42)
	if len(messages) != 1 || messages[0].ID != "115982368204512345" || messages[0].ChatID != 42 {
		t.Fatalf("unexpected messages %#v", messages)
	}
}

func TestDecodeFrame_EmptyPayload(t *testing.T) {
	frame, err := DecodeFrame([]byte(`{"ver":11,"cmd":1,"seq":1,"opcode":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Payload == nil {
		t.Fatalf("expected empty payload map")
	}
	if _, err := DecodeFrame([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestOpcodeString(t *testing.T) {
	if OpLogin.String() != "LOGIN" || Opcode(999).String() != "OPCODE_999" {
		t.Fatalf("unexpected opcode names")
	}
}
