package bridge

import (
	goerrors "github.com/goliatone/go-errors"
)

const ErrorBridge = "BRIDGE_ERROR"

func newBridgeError(operation, message string, metadata map[string]any) *goerrors.Error {
	meta := map[string]any{"operation": operation}
	for key, value := range metadata {
		meta[key] = value
	}
	return goerrors.New("bridge: "+message, goerrors.CategoryInternal).
		WithTextCode(ErrorBridge).
		WithMetadata(meta)
}

// IsBridgeError reports whether err was raised by the bridge itself rather
// than by the bridged operation.
func IsBridgeError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrorBridge
}
