package wire

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const ErrorSerialization = "SERIALIZATION_ERROR"

func serializationError(path string, value any) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("wire: unsupported value of type %T at %q", value, displayPath(path)),
		goerrors.CategoryBadInput,
	).
		WithTextCode(ErrorSerialization).
		WithMetadata(map[string]any{
			"path": displayPath(path),
			"type": fmt.Sprintf("%T", value),
		})
}

// IsSerializationError reports whether err was produced by the marshaller.
func IsSerializationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrorSerialization
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
