package feature

import (
	"errors"
	"fmt"
)

// Standard errors returned by the registry and the engine.
var (
	// ErrCancelled indicates the caller cancelled the query before the
	// results were merged. It wraps the context error.
	ErrCancelled = errors.New("feature query cancelled")

	// ErrNoProvider indicates no registered provider matches the document.
	// Queries never return it; they yield an empty result instead.
	ErrNoProvider = errors.New("no provider matches document")

	// ErrInvalidKind indicates an unknown feature kind.
	ErrInvalidKind = errors.New("invalid feature kind")

	// ErrUnsupportedCapability indicates a provider does not implement the
	// interface of the kind it was registered for.
	ErrUnsupportedCapability = errors.New("provider does not support feature")

	// ErrNilProvider indicates a nil provider was registered.
	ErrNilProvider = errors.New("nil provider")

	// ErrInvalidSelector indicates a selector that can never match.
	ErrInvalidSelector = errors.New("selector matches nothing")

	// ErrProviderPanic indicates a provider panicked.
	ErrProviderPanic = errors.New("provider panicked")

	// ErrUnknownCommand indicates a command id missing from the command table.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrEmptyName indicates a rename request without a new name.
	ErrEmptyName = errors.New("new name is empty")
)

// ProviderError is a fault of a single provider: it returned an error,
// panicked or timed out.
type ProviderError struct {
	Kind           Kind
	RegistrationID string
	Err            error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Kind, e.RegistrationID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// cancelled wraps a context error as ErrCancelled.
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
