package order

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the workflow. Transport status codes are assigned
// only at the HTTP boundary.
var (
	// ErrValidation marks client-correctable rejections: bad token, empty
	// cart, unknown product, insufficient stock. Nothing is persisted.
	ErrValidation = errors.New("validation")
	// ErrServiceUnavailable marks dependency failures the caller may retry:
	// breaker-open or remote errors on cart fetch, product fetch, or stock
	// reduction.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrRepository marks store failures; propagated as-is, no fallback.
	ErrRepository = errors.New("order: repository failure")
)

func newValidation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewUnavailable wraps a dependency failure so errors.Is(err,
// ErrServiceUnavailable) holds across the gateway boundary.
func NewUnavailable(peer string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, peer)
	}
	return fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, peer, cause)
}
