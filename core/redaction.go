package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const RedactedValue = "[REDACTED]"

// RedactLogFields returns a copy of fields that is safe to log. Session
// tokens and login codes are replaced, phone numbers are masked down to the
// country prefix and last two digits, and message text is reduced to its
// length. Identifiers used to correlate calls stay readable.
func RedactLogFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return redactMap(fields)
}

// MaskPhone keeps the leading "+" and country digit plus the last two digits.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	prefix := ""
	digits := phone
	if strings.HasPrefix(digits, "+") {
		prefix = "+"
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		return prefix + strings.Repeat("*", len(digits))
	}
	return prefix + digits[:1] + strings.Repeat("*", len(digits)-3) + digits[len(digits)-2:]
}

func redactMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		target[key] = redactField(key, value)
	}
	return target
}

func redactField(key string, value any) any {
	switch classifyLogKey(key) {
	case logKeySecret:
		if value == nil {
			return nil
		}
		return RedactedValue
	case logKeyPhone:
		if phone, ok := value.(string); ok {
			return MaskPhone(phone)
		}
		return RedactedValue
	case logKeyText:
		if text, ok := value.(string); ok {
			return fmt.Sprintf("[%d chars]", utf8.RuneCountInString(text))
		}
		return RedactedValue
	}

	switch typed := value.(type) {
	case map[string]any:
		return redactMap(typed)
	case []map[string]any:
		out := make([]map[string]any, len(typed))
		for i := range typed {
			out[i] = redactMap(typed[i])
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactField("", typed[i])
		}
		return out
	default:
		return value
	}
}

type logKeyClass int

const (
	logKeyPlain logKeyClass = iota
	logKeySecret
	logKeyPhone
	logKeyText
)

func classifyLogKey(key string) logKeyClass {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "", "device_id", "chat_id", "sender_id", "operation", "error_code", "work_dir", "trace_id", "request_id":
		return logKeyPlain
	case "phone":
		return logKeyPhone
	case "text":
		return logKeyText
	}
	for _, marker := range []string{"token", "code", "password", "secret", "authorization"} {
		if strings.Contains(key, marker) {
			return logKeySecret
		}
	}
	return logKeyPlain
}
