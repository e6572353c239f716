package planner

import (
	"errors"
	"fmt"

	"github.com/alex-user-go/tripplan/internal/providers"
)

var (
	// ErrInvalidCriteria is returned by Plan for requests it cannot plan.
	ErrInvalidCriteria = errors.New("invalid trip criteria")
	// ErrNoLocation is reported when a lodging provider cannot resolve the
	// destination.
	ErrNoLocation = errors.New("no location found")
)

// ProviderError describes one failed provider call. It matches both
// providers.ErrProviderUnavailable and the underlying cause.
type ProviderError struct {
	Kind     providers.Kind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider %q unavailable: %v", e.Kind, e.Provider, e.Err)
}

// Unwrap returns providers.ErrProviderUnavailable and the cause.
func (e *ProviderError) Unwrap() []error {
	return []error{providers.ErrProviderUnavailable, e.Err}
}
