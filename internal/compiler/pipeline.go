// Package compiler turns CUE pipeline definitions into declarations the
// world can register. CUE gives us typed configuration with unification
// and precise error positions; the compiler only does structural checks,
// graph-level validation (cycles, unknown tick sources) happens at
// registration.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// PhaseDecl declares a pipeline phase. After names the phase this one
// follows; empty means the phase is a chain root.
type PhaseDecl struct {
	Name  string
	After string
}

// TimerDecl declares a standalone tick source that fires every Interval
// seconds of accumulated delta.
type TimerDecl struct {
	Name     string
	Interval float64
}

// SystemDecl declares a schedulable unit. Interval and Rate are pointers
// so absence is distinguishable from zero; at most one may be set.
type SystemDecl struct {
	Name          string
	Phase         string
	After         []string
	Before        []string
	Interval      *float64
	Rate          *int
	TickSource    string
	MultiThreaded bool
	NoReadonly    bool
	QueryWith     []string
	QueryWithout  []string
}

// Pipeline is a compiled set of declarations, in source order.
type Pipeline struct {
	Phases  []PhaseDecl
	Timers  []TimerDecl
	Systems []SystemDecl
}

// CompilePipeline parses a CUE value into a Pipeline.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the document root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`system: "Move": { phase: "OnUpdate" }`)
//	p, err := CompilePipeline(v)
func CompilePipeline(v cue.Value) (*Pipeline, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Pipeline{}

	phaseVal := v.LookupPath(cue.ParsePath("phase"))
	if phaseVal.Exists() {
		iter, err := phaseVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parsePhase(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			p.Phases = append(p.Phases, decl)
		}
	}

	timerVal := v.LookupPath(cue.ParsePath("timer"))
	if timerVal.Exists() {
		iter, err := timerVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parseTimer(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			p.Timers = append(p.Timers, decl)
		}
	}

	systemVal := v.LookupPath(cue.ParsePath("system"))
	if systemVal.Exists() {
		iter, err := systemVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parseSystem(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			p.Systems = append(p.Systems, decl)
		}
	}

	return p, nil
}

func parsePhase(name string, v cue.Value) (PhaseDecl, error) {
	decl := PhaseDecl{Name: name}

	afterVal := v.LookupPath(cue.ParsePath("after"))
	if afterVal.Exists() {
		after, err := afterVal.String()
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("phase.%s.after", name),
				Message: "after must be a phase name",
				Pos:     afterVal.Pos(),
			}
		}
		decl.After = after
	}

	return decl, nil
}

func parseTimer(name string, v cue.Value) (TimerDecl, error) {
	decl := TimerDecl{Name: name}

	intervalVal := v.LookupPath(cue.ParsePath("interval"))
	if !intervalVal.Exists() {
		return decl, &CompileError{
			Field:   fmt.Sprintf("timer.%s", name),
			Message: "timer requires 'interval' field",
			Pos:     v.Pos(),
		}
	}
	interval, err := intervalVal.Float64()
	if err != nil {
		return decl, &CompileError{
			Field:   fmt.Sprintf("timer.%s.interval", name),
			Message: "interval must be a number of seconds",
			Pos:     intervalVal.Pos(),
		}
	}
	decl.Interval = interval

	return decl, nil
}

func parseSystem(name string, v cue.Value) (SystemDecl, error) {
	decl := SystemDecl{Name: name}

	phaseVal := v.LookupPath(cue.ParsePath("phase"))
	if phaseVal.Exists() {
		phase, err := phaseVal.String()
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("system.%s.phase", name),
				Message: "phase must be a phase name",
				Pos:     phaseVal.Pos(),
			}
		}
		decl.Phase = phase
	}

	var err error
	decl.After, err = parseStringList(v, "after", fmt.Sprintf("system.%s.after", name))
	if err != nil {
		return decl, err
	}
	decl.Before, err = parseStringList(v, "before", fmt.Sprintf("system.%s.before", name))
	if err != nil {
		return decl, err
	}

	intervalVal := v.LookupPath(cue.ParsePath("interval"))
	if intervalVal.Exists() {
		interval, err := intervalVal.Float64()
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("system.%s.interval", name),
				Message: "interval must be a number of seconds",
				Pos:     intervalVal.Pos(),
			}
		}
		decl.Interval = &interval
	}

	rateVal := v.LookupPath(cue.ParsePath("rate"))
	if rateVal.Exists() {
		rate, err := rateVal.Int64()
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("system.%s.rate", name),
				Message: "rate must be an integer multiplier",
				Pos:     rateVal.Pos(),
			}
		}
		r := int(rate)
		decl.Rate = &r
	}

	// A declaration is unordered, so "last call wins" has no meaning here.
	// Both present is a conflict the author must resolve.
	if decl.Interval != nil && decl.Rate != nil {
		return decl, &CompileError{
			Field:   fmt.Sprintf("system.%s", name),
			Message: "interval and rate are mutually exclusive",
			Pos:     v.Pos(),
		}
	}

	sourceVal := v.LookupPath(cue.ParsePath("tick_source"))
	if sourceVal.Exists() {
		source, err := sourceVal.String()
		if err != nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("system.%s.tick_source", name),
				Message: "tick_source must be a unit name",
				Pos:     sourceVal.Pos(),
			}
		}
		if decl.Rate == nil {
			return decl, &CompileError{
				Field:   fmt.Sprintf("system.%s.tick_source", name),
				Message: "tick_source requires 'rate'",
				Pos:     sourceVal.Pos(),
			}
		}
		decl.TickSource = source
	}

	decl.MultiThreaded, err = parseBool(v, "multi_threaded", fmt.Sprintf("system.%s.multi_threaded", name))
	if err != nil {
		return decl, err
	}
	decl.NoReadonly, err = parseBool(v, "no_readonly", fmt.Sprintf("system.%s.no_readonly", name))
	if err != nil {
		return decl, err
	}

	queryVal := v.LookupPath(cue.ParsePath("query"))
	if queryVal.Exists() {
		decl.QueryWith, err = parseStringList(queryVal, "with", fmt.Sprintf("system.%s.query.with", name))
		if err != nil {
			return decl, err
		}
		decl.QueryWithout, err = parseStringList(queryVal, "without", fmt.Sprintf("system.%s.query.without", name))
		if err != nil {
			return decl, err
		}
	}

	return decl, nil
}

func parseStringList(v cue.Value, path, field string) ([]string, error) {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of strings",
			Pos:     listVal.Pos(),
		}
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: "must be a list of strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseBool(v cue.Value, path, field string) (bool, error) {
	boolVal := v.LookupPath(cue.ParsePath(path))
	if !boolVal.Exists() {
		return false, nil
	}

	b, err := boolVal.Bool()
	if err != nil {
		return false, &CompileError{
			Field:   field,
			Message: "must be a bool",
			Pos:     boolVal.Pos(),
		}
	}
	return b, nil
}

// CompileError represents a compilation error with position info.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts CUE SDK errors to CompileError with position info.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
