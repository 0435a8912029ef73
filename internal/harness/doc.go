// Package harness provides conformance testing for pipeline definitions.
//
// The harness loads a CUE defs directory, builds a world, runs it for a
// fixed number of ticks with a fixed delta, and validates assertions
// against the recorded execution.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	defs: ./defs
//	ticks: 4
//	delta: 0.25
//	threads: 2
//	entities:
//	  - name: player
//	    components: [Position, Velocity]
//	assertions:
//	  - type: tick_order
//	    tick: 1
//	    systems: [Move, Collide, Draw]
//	  - type: ran_count
//	    system: Move
//	    count: 4
//	  - type: precedes
//	    before: Move
//	    after: Draw
//
// # Assertion Types
//
//   - tick_order: the systems that ran in a given tick, in order
//   - ran_count: a system ran exactly N times across the whole run
//   - precedes: in every tick where both ran, one system ran first
//
// # Deterministic Testing
//
// Scheduling is deterministic (phase rank, then registration order), and
// timing state advances only with the scenario's fixed delta, so a
// scenario produces the same execution record on every run. Golden
// snapshots of that record are compared with goldie.
package harness
