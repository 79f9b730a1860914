package sqlstore

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-maxbridge/core"
)

var (
	errStoreNotConfigured = goerrors.New("sqlstore: credential store is not configured", goerrors.CategoryInternal)
	errStoreClosed        = goerrors.New("sqlstore: credential store is closed", goerrors.CategoryOperation)
)

// IsStorageError reports whether err came from the credential store.
func IsStorageError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return strings.EqualFold(rich.TextCode, core.HostErrorStorage)
}

func storageError(operation string, err error, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	meta := map[string]any{"operation": operation}
	for key, value := range metadata {
		meta[key] = value
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == core.HostErrorStorage {
		return rich
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "sqlstore: "+operation+" failed").
		WithTextCode(core.HostErrorStorage).
		WithMetadata(meta)
}
