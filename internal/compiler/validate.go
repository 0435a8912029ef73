package compiler

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyName         = "E100" // declaration name is empty
	ErrDuplicateName     = "E101" // name declared more than once
	ErrTimerInterval     = "E102" // timer interval must be positive
	ErrNegativeRate      = "E103" // rate multiplier must not be negative
	ErrSelfReference     = "E104" // unit depends on itself
	ErrUnknownPhase      = "E105" // phase reference not declared
	ErrUnknownTickSource = "E106" // tick source reference not declared
	ErrUnknownUnit       = "E107" // after/before reference not declared
)

// ValidationError represents a static validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled pipeline for declaration-level mistakes.
// Returns all errors found (does not fail-fast).
//
// known lists names resolvable outside the document, typically the
// builtin phases and the frame tick source. References to anything else
// must be declared in the pipeline itself: a name that never registers
// would leave a dependency edge that silently never constrains.
func Validate(p *Pipeline, known ...string) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool)
	for _, name := range known {
		declared[name] = true
	}

	seen := make(map[string]bool)
	record := func(kind, name string) {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   kind,
				Message: "declaration name must be non-empty",
				Code:    ErrEmptyName,
			})
			return
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.%s", kind, name),
				Message: fmt.Sprintf("name %q declared more than once", name),
				Code:    ErrDuplicateName,
			})
		}
		seen[name] = true
		declared[name] = true
	}

	for _, ph := range p.Phases {
		record("phase", ph.Name)
	}
	for _, tm := range p.Timers {
		record("timer", tm.Name)
	}
	for _, sys := range p.Systems {
		record("system", sys.Name)
	}

	for _, tm := range p.Timers {
		if tm.Interval <= 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("timer.%s.interval", tm.Name),
				Message: fmt.Sprintf("interval must be positive, got %v", tm.Interval),
				Code:    ErrTimerInterval,
			})
		}
	}

	for _, ph := range p.Phases {
		if ph.After == "" {
			continue
		}
		if ph.After == ph.Name {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("phase.%s.after", ph.Name),
				Message: "phase cannot follow itself",
				Code:    ErrSelfReference,
			})
		} else if !declared[ph.After] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("phase.%s.after", ph.Name),
				Message: fmt.Sprintf("unknown phase %q", ph.After),
				Code:    ErrUnknownPhase,
			})
		}
	}

	for _, sys := range p.Systems {
		errs = append(errs, validateSystemDecl(sys, declared)...)
	}

	return errs
}

func validateSystemDecl(sys SystemDecl, declared map[string]bool) []ValidationError {
	var errs []ValidationError

	if sys.Rate != nil && *sys.Rate < 0 {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("system.%s.rate", sys.Name),
			Message: fmt.Sprintf("rate must not be negative, got %d", *sys.Rate),
			Code:    ErrNegativeRate,
		})
	}

	if sys.Phase != "" && !declared[sys.Phase] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("system.%s.phase", sys.Name),
			Message: fmt.Sprintf("unknown phase %q", sys.Phase),
			Code:    ErrUnknownPhase,
		})
	}

	if sys.TickSource != "" && !declared[sys.TickSource] {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("system.%s.tick_source", sys.Name),
			Message: fmt.Sprintf("unknown tick source %q", sys.TickSource),
			Code:    ErrUnknownTickSource,
		})
	}

	check := func(field string, refs []string) {
		for _, ref := range refs {
			if ref == sys.Name {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("system.%s.%s", sys.Name, field),
					Message: "unit cannot depend on itself",
					Code:    ErrSelfReference,
				})
			} else if !declared[ref] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("system.%s.%s", sys.Name, field),
					Message: fmt.Sprintf("unknown unit %q", ref),
					Code:    ErrUnknownUnit,
				})
			}
		}
	}
	check("after", sys.After)
	check("before", sys.Before)

	return errs
}
