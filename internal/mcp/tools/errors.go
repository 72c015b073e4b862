package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"

	"github.com/usestring/recordflat/internal/extract"
	"github.com/usestring/recordflat/internal/mapping"
	"github.com/usestring/recordflat/pkg/flatreader"
	"github.com/usestring/recordflat/pkg/pathengine"
	"github.com/usestring/recordflat/pkg/source"
)

// Error codes for MCP tool responses.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeSourceUnreadable  = "SOURCE_UNREADABLE"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternal          = "INTERNAL"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// Code returns the code of err, ErrCodeInternal for uncoded errors.
func Code(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return codeOf(err)
}

// WrapError converts an extraction error into a coded error.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return err
	}

	coded = &CodedError{
		Code:    codeOf(err),
		Message: messageOf(err),
		Cause:   err,
	}
	slog.Warn("tool error",
		slog.String("code", coded.Code),
		slog.String("error", err.Error()),
	)
	return coded
}

func codeOf(err error) string {
	var statusErr *source.StatusError
	var netErr net.Error

	switch {
	case errors.Is(err, extract.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrCodeTimeout
	case errors.Is(err, pathengine.ErrInvalidPath), errors.Is(err, pathengine.ErrInvalidReference):
		return ErrCodeInvalidExpression
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return ErrCodeNotFound
	case errors.Is(err, pathengine.ErrSourceUnreadable):
		return ErrCodeSourceUnreadable
	case errors.Is(err, pathengine.ErrUnsupportedFormat),
		errors.Is(err, mapping.ErrInvalidMapping),
		errors.Is(err, flatreader.ErrColumnNotFound):
		return ErrCodeInvalidInput
	default:
		return ErrCodeInternal
	}
}

func messageOf(err error) string {
	switch codeOf(err) {
	case ErrCodeTimeout:
		return "extraction timed out"
	case ErrCodeInvalidExpression:
		return "expression does not compile"
	case ErrCodeNotFound:
		return "source not found"
	case ErrCodeSourceUnreadable:
		return "source could not be read"
	case ErrCodeInvalidInput:
		return "invalid input"
	default:
		return "extraction failed"
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
