package propagation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingContext indicates a required input could not be resolved after
// the full propagation chain.
var ErrMissingContext = errors.New("required input unresolved")

// MissingContextError names the unresolved parameters and the context keys
// that were available at resolution time, so the failure is diagnosable
// from the audit trail alone.
type MissingContextError struct {
	Capability    string
	Missing       []string
	AvailableKeys []string
}

func (e *MissingContextError) Error() string {
	missing := make([]string, len(e.Missing))
	copy(missing, e.Missing)
	sort.Strings(missing)

	available := make([]string, len(e.AvailableKeys))
	copy(available, e.AvailableKeys)
	sort.Strings(available)

	return fmt.Sprintf("capability %s missing required inputs [%s] (available context keys: [%s])",
		e.Capability, strings.Join(missing, ", "), strings.Join(available, ", "))
}

func (e *MissingContextError) Unwrap() error {
	return ErrMissingContext
}

// IsMissingContext checks if an error is an unresolved-input failure.
func IsMissingContext(err error) bool {
	return errors.Is(err, ErrMissingContext)
}
