package pathengine

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by engines. Use errors.Is to test for them.
var (
	ErrSourceUnreadable  = errors.New("source unreadable")
	ErrInvalidPath       = errors.New("invalid path expression")
	ErrInvalidReference  = errors.New("invalid reference expression")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ExprError reports an iterator or reference that cannot be compiled.
type ExprError struct {
	Kind error // ErrInvalidPath or ErrInvalidReference
	Expr string
	Err  error
}

func (e *ExprError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", e.Kind, e.Expr, e.Err)
	}
	return fmt.Sprintf("%v %q", e.Kind, e.Expr)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ExprError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SourceError reports a document that cannot be loaded or parsed.
type SourceError struct {
	Locator string // may be empty when the bytes came from memory
	Err     error
}

func (e *SourceError) Error() string {
	if e.Locator == "" {
		return fmt.Sprintf("%v: %v", ErrSourceUnreadable, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrSourceUnreadable, e.Locator, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnreadable, e.Err}
}

func pathError(expr string, err error) error {
	return &ExprError{Kind: ErrInvalidPath, Expr: expr, Err: err}
}

func referenceError(expr string, err error) error {
	return &ExprError{Kind: ErrInvalidReference, Expr: expr, Err: err}
}

// exprError builds the error for an expression compiled as the given role.
func exprError(r role, expr string, err error) error {
	if r == roleIterator {
		return pathError(expr, err)
	}
	return referenceError(expr, err)
}
