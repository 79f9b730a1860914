package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/goliatone/go-maxbridge/wire"
)

// ProtocolVersion is the frame version spoken by the web client.
const ProtocolVersion = 11

type Opcode int

const (
	OpPing        Opcode = 1
	OpSessionInit Opcode = 6
	OpAuthRequest Opcode = 17
	OpAuth        Opcode = 18
	OpLogin       Opcode = 19
	OpChatInfo    Opcode = 48
	OpChatHistory Opcode = 49
)

var opcodeNames = map[Opcode]string{
	OpPing:        "PING",
	OpSessionInit: "SESSION_INIT",
	OpAuthRequest: "AUTH_REQUEST",
	OpAuth:        "AUTH",
	OpLogin:       "LOGIN",
	OpChatInfo:    "CHAT_INFO",
	OpChatHistory: "CHAT_HISTORY",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "OPCODE_" + strconv.Itoa(int(o))
}

// Command values carried in the frame cmd field.
const (
	CmdRequest  = 0
	CmdResponse = 1
	CmdError    = 3
)

// Frame is one websocket message.
type Frame struct {
	Ver     int            `json:"ver"`
	Cmd     int            `json:"cmd"`
	Seq     int64          `json:"seq"`
	Opcode  Opcode         `json:"opcode"`
	Payload map[string]any `json:"payload"`
}

// EncodeRequest marshals a request frame. The payload goes through the wire
// marshaller so field names follow the server convention.
func EncodeRequest(seq int64, opcode Opcode, req wire.Request) ([]byte, error) {
	payload := wire.Payload{}
	if req != nil {
		encoded, err := wire.Encode(req)
		if err != nil {
			return nil, err
		}
		payload = encoded
	}
	frame := map[string]any{
		"ver":     ProtocolVersion,
		"cmd":     CmdRequest,
		"seq":     seq,
		"opcode":  int(opcode),
		"payload": map[string]any(payload),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s frame: %w", opcode, err)
	}
	return data, nil
}

// DecodeFrame parses a server frame. Numbers are kept as json.Number so large
// identifiers survive.
func DecodeFrame(data []byte) (Frame, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var frame Frame
	if err := decoder.Decode(&frame); err != nil {
		return Frame{}, fmt.Errorf("protocol: decode frame: %w", err)
	}
	if frame.Payload == nil {
		frame.Payload = map[string]any{}
	}
	return frame, nil
}

// Map exposes the frame in the shape ClassifyResponse reads.
func (f Frame) Map() map[string]any {
	return map[string]any{
		"ver":     f.Ver,
		"cmd":     f.Cmd,
		"seq":     f.Seq,
		"opcode":  int(f.Opcode),
		"payload": f.Payload,
	}
}
