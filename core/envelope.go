package core

import (
	"encoding/json"
	"maps"

	goerrors "github.com/goliatone/go-errors"
)

// Envelope is the flat result returned across the host boundary:
// {"success": true, ...fields} or {"success": false, "error": "..."}.
type Envelope struct {
	Success   bool
	Error     string
	ErrorCode string
	Fields    map[string]any
}

func Succeeded(fields map[string]any) Envelope {
	out := Envelope{Success: true, Fields: map[string]any{}}
	maps.Copy(out.Fields, fields)
	return out
}

func Failed(message string, code string) Envelope {
	return Envelope{Success: false, Error: message, ErrorCode: code}
}

// FailedFrom converts a mapped error into a failure envelope.
func FailedFrom(err *goerrors.Error) Envelope {
	if err == nil {
		return Failed("An unexpected error occurred", HostErrorInternal)
	}
	return Failed(ErrorMessage(err), err.TextCode)
}

// Field returns a success field value.
func (e Envelope) Field(key string) (any, bool) {
	value, ok := e.Fields[key]
	return value, ok
}

// Err reports a failure envelope as a go-errors value carrying its error
// code. Successful envelopes yield nil.
func (e Envelope) Err() error {
	if e.Success {
		return nil
	}
	code := e.ErrorCode
	if code == "" {
		code = HostErrorInternal
	}
	return goerrors.New(e.Error, goerrors.CategoryOperation).WithTextCode(code)
}

// Map flattens the envelope into a plain map.
func (e Envelope) Map() map[string]any {
	out := make(map[string]any, len(e.Fields)+3)
	if e.Success {
		maps.Copy(out, e.Fields)
		out["success"] = true
		return out
	}
	out["success"] = false
	out["error"] = e.Error
	if e.ErrorCode != "" {
		out["error_code"] = e.ErrorCode
	}
	return out
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// JSON renders the envelope. Encoding failures are themselves reported as a
// failure envelope so callers always receive valid JSON.
func (e Envelope) JSON() string {
	raw, err := json.Marshal(e.Map())
	if err != nil {
		fallback, _ := json.Marshal(Failed("result encoding failed: "+err.Error(), HostErrorSerialization).Map())
		return string(fallback)
	}
	return string(raw)
}
