package grouping

import (
	"errors"
	"fmt"
)

var (
	// ErrStrategyNotFound is matched by every *StrategyNotFoundError.
	ErrStrategyNotFound = errors.New("strategy not found")
	ErrMalformedVersion = errors.New("malformed strategy version")
	// ErrVersionShape means two versions of one identifier have a different number of components.
	ErrVersionShape   = errors.New("strategy version shape mismatch")
	ErrNestingTooDeep = errors.New("strategy nesting too deep")
)

// StrategyNotFoundError reports an explicit lookup that could not be satisfied.
// Version is the requested (or lineage-locked) version and may be empty.
type StrategyNotFoundError struct {
	Identifier string
	FlavorKey  string
	Version    string
}

func (e *StrategyNotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("strategy not found: %s (flavor %q)", e.Identifier, e.FlavorKey)
	}
	return fmt.Sprintf("strategy not found: %s:%s (flavor %q)", e.Identifier, e.Version, e.FlavorKey)
}

func (e *StrategyNotFoundError) Unwrap() error { return ErrStrategyNotFound }

// invariantError is raised with panic when the pick's internal bookkeeping is inconsistent.
type invariantError string

func (e invariantError) Error() string { return "grouping: invariant violated: " + string(e) }
