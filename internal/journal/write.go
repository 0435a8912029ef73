package journal

import (
	"context"
	"fmt"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/schedule"
	"github.com/jbarthelmes/flecs/internal/system"
)

// WriteRegistration records a registered system, keyed by its canonical
// descriptor hash. Uses ON CONFLICT DO NOTHING for idempotency: registering
// the same pipeline twice leaves a single record per unit.
func (j *Journal) WriteRegistration(ctx context.Context, desc system.Descriptor, e entity.Entity, seq int64) error {
	hash, err := system.Hash(desc)
	if err != nil {
		return fmt.Errorf("write registration: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO registrations
		(hash, entity, name, phase, timing_kind, interval, multiplier, tick_source, multi_threaded, no_readonly, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		uint64(e),
		desc.Name,
		uint64(desc.Phase),
		int(desc.Timing.Kind),
		desc.Timing.Interval,
		desc.Timing.Multiplier,
		uint64(desc.Timing.Source),
		desc.MultiThreaded,
		desc.NoReadonly,
		seq,
	)
	if err != nil {
		return fmt.Errorf("write registration %s: %w", desc.Name, err)
	}
	return nil
}

// WriteTick records every system invocation from a tick report under the
// given run token. Duplicate (token, tick, system) rows are silently
// ignored, so replaying a journaled tick is idempotent.
func (j *Journal) WriteTick(ctx context.Context, runToken string, report *schedule.TickReport) error {
	if runToken == "" {
		return fmt.Errorf("write tick: run token is required")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", report.Tick, err)
	}
	defer tx.Rollback()

	for _, ran := range report.Ran {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_token, tick, entity, name, duration_ns)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			runToken,
			report.Tick,
			uint64(ran.Entity),
			ran.Name,
			ran.Duration.Nanoseconds(),
		)
		if err != nil {
			return fmt.Errorf("write tick %d run %s: %w", report.Tick, ran.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write tick %d: %w", report.Tick, err)
	}
	return nil
}
