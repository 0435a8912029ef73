// Package journal provides SQLite-backed durable storage for scheduling
// activity: system registrations and per-tick run records.
//
// Registrations are content-addressed by the canonical descriptor hash and
// written idempotently, so re-registering the same pipeline leaves a single
// record per unit. Run records are grouped by a run token (UUIDv7) minted
// once per run session, and ordered by the tick counter - a logical clock,
// never wall time - so traces read back deterministically.
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package journal
