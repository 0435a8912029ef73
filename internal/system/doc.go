// Package system defines the descriptor for a schedulable unit and the
// fluent builder that assembles it.
//
// A system is a piece of logic matched against a query and executed under
// scheduling constraints: phase membership, precedence edges against other
// systems or phases, a timing policy (fixed interval or a multiple of a tick
// source), and concurrency eligibility flags. The builder stages exactly one
// Descriptor and hands it to a Registrar on finalization; all deeper
// validation (identity existence, cycle detection) happens at registration.
package system
