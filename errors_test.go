package permstore

import (
	"errors"
	"strings"
	"testing"
)

func TestAccessErrorUnwrapsToSentinel(t *testing.T) {
	err := deniedError(PermissionWrite, "secret", "secret:inner")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected AccessError, got %T", err)
	}
	if accessErr.Key != "secret" || accessErr.Action != PermissionWrite {
		t.Fatalf("unexpected metadata: %+v", accessErr)
	}
	msg := accessErr.Error()
	if !strings.Contains(msg, `key="secret"`) || !strings.Contains(msg, `action="w"`) {
		t.Fatalf("message should carry key and action: %q", msg)
	}
}

func TestWrapGuardErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapGuardError("expr", "tier == missing", "secret", base)

	var guardErr *GuardError
	if !errors.As(err, &guardErr) {
		t.Fatalf("expected GuardError, got %T", err)
	}
	if guardErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", guardErr.Engine)
	}
	if guardErr.Expr != "tier == missing" {
		t.Fatalf("expected expression metadata, got %q", guardErr.Expr)
	}
	if guardErr.Key != "secret" {
		t.Fatalf("expected key metadata, got %q", guardErr.Key)
	}
	if !errors.Is(guardErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapGuardErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &GuardError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapGuardError("cel", "rule", "field", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Key != "field" {
		t.Fatalf("key should be filled, got %q", existing.Key)
	}
}

func TestWrapGuardEngineErrorSkipsPrefixed(t *testing.T) {
	prefixed := errors.New("permstore: already wrapped")
	if got := wrapGuardEngineError("expr", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error passthrough, got %v", got)
	}
	if got := wrapGuardEngineError("expr", nil); got != nil {
		t.Fatalf("expected nil passthrough, got %v", got)
	}
}
