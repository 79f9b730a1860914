package ratelimit

import (
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-maxbridge/core"
)

func TestThrottledError_ToServiceError(t *testing.T) {
	err := ThrottledError{
		Account:    "+79001234567",
		Bucket:     "AUTH_REQUEST",
		RetryAfter: 3 * time.Second,
	}

	mapped := err.ToServiceError()
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != core.HostErrorRateLimited {
		t.Fatalf("expected %q text code, got %q", core.HostErrorRateLimited, mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryRateLimit || mapped.Code != 429 {
		t.Fatalf("unexpected mapping %#v", mapped)
	}
	if mapped.Metadata["retry_after_ms"] != int64(3000) {
		t.Fatalf("expected retry_after_ms metadata, got %#v", mapped.Metadata)
	}
	if _, leaked := mapped.Metadata["account"]; leaked {
		t.Fatalf("account must not be exposed in metadata")
	}
}
