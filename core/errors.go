package core

import (
	"errors"
	"maps"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	HostErrorBadInput              = "HOST_BAD_INPUT"
	HostErrorWrapperNotInitialized = "HOST_WRAPPER_NOT_INITIALIZED"
	HostErrorClientNotInitialized  = "HOST_CLIENT_NOT_INITIALIZED"
	HostErrorClientNotConnected    = "HOST_CLIENT_NOT_CONNECTED"
	HostErrorClientUnavailable     = "HOST_CLIENT_UNAVAILABLE"
	HostErrorClosed                = "HOST_CLOSED"
	HostErrorStorage               = "STORAGE_ERROR"
	HostErrorSerialization         = "SERIALIZATION_ERROR"
	HostErrorProtocol              = "PROTOCOL_ERROR"
	HostErrorRateLimited           = "RATE_LIMITED"
	HostErrorBridge                = "BRIDGE_ERROR"
	HostErrorInternal              = "HOST_INTERNAL_ERROR"
)

const (
	MessageWrapperNotInitialized = "Wrapper not initialized"
	MessageClientNotInitialized  = "Client not initialized"
	MessageClientNotConnected    = "Client not connected"
	MessageClientStopped         = "Client stopped"
)

var (
	ErrWrapperNotInitialized = newHostError(MessageWrapperNotInitialized, goerrors.CategoryOperation, HostErrorWrapperNotInitialized)
	ErrClientNotInitialized  = newHostError(MessageClientNotInitialized, goerrors.CategoryOperation, HostErrorClientNotInitialized)
	ErrClientNotConnected    = newHostError(MessageClientNotConnected, goerrors.CategoryOperation, HostErrorClientNotConnected)
	ErrHostClosed            = newHostError("Host closed", goerrors.CategoryOperation, HostErrorClosed)
)

// ServiceErrorConverter is implemented by errors that know their go-errors
// envelope, such as protocol failures.
type ServiceErrorConverter interface {
	ToServiceError() *goerrors.Error
}

func hostErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var converter ServiceErrorConverter
	if errors.As(err, &converter) {
		if mapped := converter.ToServiceError(); mapped != nil {
			return ensureHostErrorEnvelope(mapped)
		}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureHostErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "sqlite"), strings.Contains(msg, "session.db"):
		return newHostError(err.Error(), goerrors.CategoryInternal, HostErrorStorage)
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "rate limit"):
		return newHostError(err.Error(), goerrors.CategoryRateLimit, HostErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newHostError(err.Error(), goerrors.CategoryBadInput, HostErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureHostErrorEnvelope(mapped)
}

func newHostError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureHostErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func badInputError(message string) *goerrors.Error {
	return newHostError(message, goerrors.CategoryBadInput, HostErrorBadInput)
}

// ensureHostErrorEnvelope fills in the status, text code and message a
// failure envelope needs. It works on a copy because mapped errors may be
// shared package sentinels.
func ensureHostErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	normalized := *err
	normalized.Metadata = maps.Clone(err.Metadata)
	if normalized.Code == 0 {
		normalized.Code = hostHTTPStatus(normalized.Category)
	}
	if strings.TrimSpace(normalized.TextCode) == "" {
		normalized.TextCode = defaultHostTextCode(normalized.Category)
	}
	if normalized.Category == goerrors.CategoryInternal && strings.TrimSpace(normalized.Message) == "" {
		normalized.Message = "An unexpected error occurred"
	}
	return &normalized
}

func defaultHostTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return HostErrorBadInput
	case goerrors.CategoryRateLimit:
		return HostErrorRateLimited
	case goerrors.CategoryExternal:
		return HostErrorProtocol
	case goerrors.CategoryOperation:
		return HostErrorClientUnavailable
	default:
		return HostErrorInternal
	}
}

func hostHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryConflict, goerrors.CategoryOperation:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage renders a mapped error as the human readable text placed in a
// failure envelope.
func ErrorMessage(err *goerrors.Error) string {
	if err == nil {
		return ""
	}
	message := strings.TrimSpace(err.Message)
	if err.Source != nil {
		var nested *goerrors.Error
		if !goerrors.As(err.Source, &nested) {
			if cause := strings.TrimSpace(err.Source.Error()); cause != "" && !strings.Contains(message, cause) {
				if message == "" {
					return cause
				}
				message += ": " + cause
			}
		}
	}
	if message == "" {
		return "An unexpected error occurred"
	}
	return message
}
