// Package query defines the data-matching query boundary of the scheduling
// core.
//
// A Spec describes which records a schedulable unit operates on. The
// scheduling core stores the Spec verbatim on a system descriptor and never
// interprets it - matching is the job of an external engine implementing the
// Engine interface. A small in-memory Index implementation is provided for
// tests and demos.
package query
