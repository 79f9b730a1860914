package protocol

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-maxbridge/core"
)

// ErrorRateLimited is the server error code that marks throttling.
const ErrorRateLimited = "too.many.requests"

type ErrorKind string

const (
	KindGeneric   ErrorKind = "generic"
	KindRateLimit ErrorKind = "rate_limit"
)

// ProtocolError is a failure reported by the server inside a response payload.
type ProtocolError struct {
	Kind             ErrorKind
	Code             string
	Message          string
	Title            string
	LocalizedMessage string
	Opcode           Opcode
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	text := strings.TrimSpace(e.Message)
	if text == "" {
		text = strings.TrimSpace(e.LocalizedMessage)
	}
	if text == "" {
		text = strings.TrimSpace(e.Title)
	}
	if text == "" {
		return fmt.Sprintf("protocol: %s", e.Code)
	}
	return fmt.Sprintf("protocol: %s: %s", e.Code, text)
}

func (e *ProtocolError) IsRateLimit() bool {
	return e != nil && e.Kind == KindRateLimit
}

func (e *ProtocolError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	metadata := map[string]any{
		"error":             e.Code,
		"message":           e.Message,
		"title":             e.Title,
		"localized_message": e.LocalizedMessage,
	}
	if e.Opcode != 0 {
		metadata["opcode"] = e.Opcode.String()
	}
	message := e.displayMessage()
	if e.IsRateLimit() {
		return goerrors.New(message, goerrors.CategoryRateLimit).
			WithCode(429).
			WithTextCode(core.HostErrorRateLimited).
			WithMetadata(metadata)
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(502).
		WithTextCode(core.HostErrorProtocol).
		WithMetadata(metadata)
}

// displayMessage prefers the text shown to users by the official clients.
func (e *ProtocolError) displayMessage() string {
	for _, candidate := range []string{e.LocalizedMessage, e.Message, e.Title} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return e.Error()
}

// Classify turns a response payload section into a typed error. A missing,
// null or blank error yields nil. Any other error value, string or not, is a
// failure.
func Classify(payload map[string]any) error {
	raw, ok := payload["error"]
	if !ok || raw == nil {
		return nil
	}
	code, isString := raw.(string)
	if !isString {
		code = fmt.Sprint(raw)
	} else if strings.TrimSpace(code) == "" {
		return nil
	}
	kind := KindGeneric
	if code == ErrorRateLimited {
		kind = KindRateLimit
	}
	return &ProtocolError{
		Kind:             kind,
		Code:             code,
		Message:          stringField(payload, "message"),
		Title:            stringField(payload, "title"),
		LocalizedMessage: stringField(payload, "localizedMessage"),
	}
}

// ClassifyResponse classifies the payload section of a full response frame.
func ClassifyResponse(response map[string]any) error {
	payload, _ := response["payload"].(map[string]any)
	return Classify(payload)
}

// IsRateLimit reports whether err carries a server throttling failure.
func IsRateLimit(err error) bool {
	var protocolErr *ProtocolError
	if goerrors.As(err, &protocolErr) {
		return protocolErr.IsRateLimit()
	}
	return false
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}
