package permstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAccessDenied is the sentinel wrapped by every permission failure.
var ErrAccessDenied = errors.New("permstore: access denied")

// AccessError reports a failed permission check. It carries the offending key,
// the requested action, and the full path of the operation that triggered it.
type AccessError struct {
	Key    string
	Action Permission
	Path   string
	Err    error
}

func (e *AccessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("permstore: access denied: action=%q key=%q path=%q", e.Action, e.Key, e.Path)
}

func (e *AccessError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Err != nil {
		return e.Err
	}
	return ErrAccessDenied
}

func deniedError(action Permission, key, path string) error {
	return &AccessError{
		Key:    key,
		Action: action,
		Path:   path,
		Err:    ErrAccessDenied,
	}
}

// GuardError captures guard evaluator metadata alongside the originating error.
type GuardError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *GuardError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("permstore: %s guard %s key=%q: %v", e.Engine, describeGuard(e.Expr), e.Key, e.Err)
}

func (e *GuardError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeGuard(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapGuardEngineError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "permstore:") {
		return err
	}
	return fmt.Errorf("permstore: %s guard: %w", engine, err)
}

func wrapGuardError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}

	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		if guardErr.Engine == "" {
			guardErr.Engine = engine
		}
		if guardErr.Expr == "" {
			guardErr.Expr = expr
		}
		if guardErr.Key == "" {
			guardErr.Key = key
		}
		return guardErr
	}

	return &GuardError{
		Engine: engine,
		Expr:   expr,
		Key:    key,
		Err:    err,
	}
}
