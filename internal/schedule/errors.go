package schedule

import (
	"errors"
	"fmt"
)

// GraphError represents an error detected while merging a descriptor into
// the scheduling graph.
//
// Registration errors include:
//   - Invalid identity: a referenced phase, edge target, or tick source does
//     not exist in the runtime
//   - Cyclic dependency: merging the new edges would close a cycle
//   - Invalid rate: a negative rate multiplier
//   - Duplicate unit: the named unit already carries a descriptor
//
// GraphError includes structured fields for diagnostics. The builder never
// raises these itself; they surface synchronously from Register and are
// propagated to the caller unchanged.
type GraphError struct {
	// Code identifies the error category.
	Code GraphErrorCode

	// Message is a human-readable description.
	Message string

	// Unit names the descriptor being registered, when known.
	Unit string

	// Details contains additional context.
	Details map[string]string
}

// GraphErrorCode categorizes registration errors.
type GraphErrorCode string

const (
	// ErrCodeInvalidIdentity indicates a referenced entity does not exist
	// in the runtime at registration time.
	ErrCodeInvalidIdentity GraphErrorCode = "INVALID_IDENTITY"

	// ErrCodeCyclicDependency indicates the merged graph would contain a
	// cycle. Registration fails atomically: the global graph is unchanged.
	ErrCodeCyclicDependency GraphErrorCode = "CYCLIC_DEPENDENCY"

	// ErrCodeConflictingTimingPolicy is reserved for runtimes that reject
	// interval/rate conflicts instead of overwriting. This runtime keeps
	// the builder's last-call-wins semantics, so the code is defined for
	// the contract but never produced by Register.
	ErrCodeConflictingTimingPolicy GraphErrorCode = "CONFLICTING_TIMING_POLICY"

	// ErrCodeInvalidRate indicates a negative rate multiplier.
	ErrCodeInvalidRate GraphErrorCode = "INVALID_RATE"

	// ErrCodeDuplicateUnit indicates the named unit is already registered.
	ErrCodeDuplicateUnit GraphErrorCode = "DUPLICATE_UNIT"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s: %s (unit=%s)", e.Code, e.Message, e.Unit)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidIdentity reports whether err is an invalid-identity registration
// error. Uses errors.As to handle wrapped errors.
func IsInvalidIdentity(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeInvalidIdentity
	}
	return false
}

// IsCyclicDependency reports whether err is a cycle registration error.
// Uses errors.As to handle wrapped errors.
func IsCyclicDependency(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeCyclicDependency
	}
	return false
}

// IsInvalidRate reports whether err is a rate-multiplier registration error.
func IsInvalidRate(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == ErrCodeInvalidRate
	}
	return false
}

func newInvalidIdentityError(unit, role string, id uint64) *GraphError {
	return &GraphError{
		Code:    ErrCodeInvalidIdentity,
		Message: fmt.Sprintf("%s references unknown entity %d", role, id),
		Unit:    unit,
		Details: map[string]string{
			"role":   role,
			"entity": fmt.Sprintf("%d", id),
		},
	}
}

func newCyclicDependencyError(unit string) *GraphError {
	return &GraphError{
		Code:    ErrCodeCyclicDependency,
		Message: "merging precedence edges would close a cycle",
		Unit:    unit,
	}
}

func newInvalidRateError(unit string, multiplier int) *GraphError {
	return &GraphError{
		Code:    ErrCodeInvalidRate,
		Message: fmt.Sprintf("rate multiplier must be positive, got %d", multiplier),
		Unit:    unit,
	}
}

func newDuplicateUnitError(unit string) *GraphError {
	return &GraphError{
		Code:    ErrCodeDuplicateUnit,
		Message: "unit is already registered",
		Unit:    unit,
	}
}
