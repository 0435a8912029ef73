package journal

import (
	"context"
	"fmt"
	"time"
)

// Registration is a stored registration record.
type Registration struct {
	Hash          string
	Entity        uint64
	Name          string
	Phase         uint64
	TimingKind    int
	Interval      float64
	Multiplier    int
	TickSource    uint64
	MultiThreaded bool
	NoReadonly    bool
	Seq           int64
}

// Run is a stored system invocation record.
type Run struct {
	RunToken string
	Tick     int64
	Entity   uint64
	Name     string
	Duration time.Duration
}

// ReadRegistrations returns all registration records in registration order.
// Ordering uses the logical seq, never wall time, so reads are
// deterministic. Returns an empty slice (not nil) when the journal is empty.
func (j *Journal) ReadRegistrations(ctx context.Context) ([]Registration, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT hash, entity, name, phase, timing_kind, interval, multiplier, tick_source, multi_threaded, no_readonly, seq
		FROM registrations
		ORDER BY seq ASC, hash ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	regs := []Registration{}
	for rows.Next() {
		var r Registration
		if err := rows.Scan(
			&r.Hash, &r.Entity, &r.Name, &r.Phase,
			&r.TimingKind, &r.Interval, &r.Multiplier, &r.TickSource,
			&r.MultiThreaded, &r.NoReadonly, &r.Seq,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

// ReadRuns returns all run records for a run token, ordered by tick then
// name. Returns an empty slice (not nil) for an unknown token.
func (j *Journal) ReadRuns(ctx context.Context, runToken string) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_token, tick, entity, name, duration_ns
		FROM runs
		WHERE run_token = ?
		ORDER BY tick ASC, name ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var durationNS int64
		if err := rows.Scan(&r.RunToken, &r.Tick, &r.Entity, &r.Name, &durationNS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationNS)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunTokens returns the distinct run tokens present in the journal, newest
// last (UUIDv7 tokens sort by creation time).
func (j *Journal) RunTokens(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT run_token FROM runs ORDER BY run_token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query run tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan run token: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run tokens: %w", err)
	}
	return tokens, nil
}
