package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jbarthelmes/flecs/internal/entity"
	"github.com/jbarthelmes/flecs/internal/query"
	"github.com/jbarthelmes/flecs/internal/system"
)

// tickState tracks timing progress for one tick source or system.
type tickState struct {
	accum  float64 // accumulated delta for interval policies and timers
	count  int     // total ticks observed from this source
	rate   int     // source ticks counted toward the next rate firing
	ticked bool    // whether the source ticked during the current frame
}

// RanSystem describes one system invocation within a tick.
type RanSystem struct {
	Entity   entity.Entity
	Name     string
	Duration time.Duration
}

// TickReport summarizes a single tick.
type TickReport struct {
	Tick  int64
	Delta float64
	Ran   []RanSystem
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithEngine attaches a query matching engine. Systems with a default
// per-match action receive the entities their query matches.
func WithEngine(engine query.Engine) RunnerOption {
	return func(r *Runner) { r.engine = engine }
}

// WithThreads caps how many multi-threaded systems run concurrently within
// a batch. Values below 1 are treated as 1.
func WithThreads(n int) RunnerOption {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.threads = n
	}
}

// Runner walks the execution order each tick and dispatches the systems
// whose timing policy makes them eligible.
//
// Dispatch policy:
//   - Systems run in the graph's deterministic order.
//   - Consecutive eligible systems marked multi-threaded, with no precedence
//     edge between them, run concurrently in one batch.
//   - A no-readonly system runs exclusively with immediate structural
//     access; the staged-write queue is flushed before it starts.
//   - All other systems run staged: structural mutations handed to
//     Iter.Defer are applied at the next sync point (before a no-readonly
//     system, or at end of tick).
//
// Timing policies are evaluated in pipeline order, so a system using an
// earlier system as its tick source observes that system's tick from the
// same frame.
type Runner struct {
	graph     *Graph
	frameTick entity.Entity
	engine    query.Engine
	threads   int

	tick   int64
	states map[entity.Entity]*tickState
	timers map[entity.Entity]float64

	stageMu sync.Mutex
	staged  []func()
}

// NewRunner creates a runner over a graph. frameTick is the entity whose
// ticks drive rate policies that name no explicit source.
func NewRunner(g *Graph, frameTick entity.Entity, opts ...RunnerOption) *Runner {
	r := &Runner{
		graph:     g,
		frameTick: frameTick,
		threads:   1,
		states:    make(map[entity.Entity]*tickState),
		timers:    make(map[entity.Entity]float64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTimer registers a standalone tick source that fires every interval
// seconds of accumulated frame delta. An interval <= 0 fires every frame.
func (r *Runner) AddTimer(e entity.Entity, interval float64) {
	r.timers[e] = interval
}

// Tick advances the world by one frame: tick sources fire, then every
// eligible system runs in order. Returns what ran.
func (r *Runner) Tick(ctx context.Context, delta float64) (*TickReport, error) {
	r.tick++
	report := &TickReport{Tick: r.tick, Delta: delta}

	for _, st := range r.states {
		st.ticked = false
	}
	r.fire(r.frameTick)

	for e, interval := range r.timers {
		st := r.state(e)
		st.accum += delta
		if interval <= 0 {
			r.fire(e)
			continue
		}
		if st.accum >= interval {
			st.accum -= interval
			r.fire(e)
		}
	}

	order, err := r.graph.Order()
	if err != nil {
		return nil, err
	}

	var batch []*Node
	for _, n := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.eligible(n, delta) {
			continue
		}

		if n.Desc.MultiThreaded && !n.Desc.NoReadonly && !r.conflicts(n, batch) {
			batch = append(batch, n)
			continue
		}

		if err := r.dispatchBatch(ctx, batch, delta, report); err != nil {
			return nil, err
		}
		batch = batch[:0]

		if n.Desc.NoReadonly {
			// Sync point: structural state must be settled before a
			// system with immediate access runs.
			r.flushStaged()
		}
		r.runOne(n, delta, report)
	}
	if err := r.dispatchBatch(ctx, batch, delta, report); err != nil {
		return nil, err
	}

	// End-of-tick sync point.
	r.flushStaged()

	slog.Debug("tick complete",
		"tick", r.tick,
		"delta", delta,
		"systems_ran", len(report.Ran),
	)
	return report, nil
}

// Tick number accessor, for journaling and tests.
func (r *Runner) Current() int64 {
	return r.tick
}

// eligible evaluates a system's timing policy for this frame.
func (r *Runner) eligible(n *Node, delta float64) bool {
	switch n.Desc.Timing.Kind {
	case system.TimingInterval:
		interval := n.Desc.Timing.Interval
		if interval <= 0 {
			return true
		}
		st := r.state(n.Entity)
		st.accum += delta
		if st.accum < interval {
			return false
		}
		st.accum -= interval
		return true

	case system.TimingRate:
		source := n.Desc.Timing.Source
		if source.IsNull() {
			source = r.frameTick
		}
		if !r.state(source).ticked {
			return false
		}
		st := r.state(n.Entity)
		st.rate++
		if st.rate < n.Desc.Timing.Multiplier {
			return false
		}
		st.rate = 0
		return true

	default:
		return true
	}
}

// conflicts reports whether n must wait for any batch member. Ordering
// constraints are transitive and an intermediate may be ineligible this
// frame, so a direct-edge check is not enough: the batch closes when a
// member reaches n through the registered graph. Phase order carries no
// explicit edges between members, so the batch also closes at every
// phase-rank boundary.
func (r *Runner) conflicts(n *Node, batch []*Node) bool {
	if len(batch) == 0 {
		return false
	}
	if r.graph.PhaseRank(n.Entity) != r.graph.PhaseRank(batch[0].Entity) {
		return true
	}
	for _, m := range batch {
		if r.graph.Reaches(m.Entity, n.Entity) {
			return true
		}
	}
	return false
}

// dispatchBatch runs a batch of mutually unordered multi-threaded systems
// concurrently.
func (r *Runner) dispatchBatch(ctx context.Context, batch []*Node, delta float64, report *TickReport) error {
	switch len(batch) {
	case 0:
		return nil
	case 1:
		r.runOne(batch[0], delta, report)
		return nil
	}

	ran := make([]RanSystem, len(batch))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.threads)
	for i, n := range batch {
		i, n := i, n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ran[i] = r.invoke(n, delta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, n := range batch {
		r.fire(n.Entity)
	}
	report.Ran = append(report.Ran, ran...)
	return nil
}

// runOne runs a single system synchronously and marks its tick.
func (r *Runner) runOne(n *Node, delta float64, report *TickReport) {
	report.Ran = append(report.Ran, r.invoke(n, delta))
	r.fire(n.Entity)
}

// invoke builds the iteration context and calls the system's action: the
// run override when present, otherwise the default per-match action.
func (r *Runner) invoke(n *Node, delta float64) RanSystem {
	it := &system.Iter{
		System: n.Entity,
		Delta:  delta,
		Ctx:    n.Desc.Ctx,
		Query:  n.Desc.Query,
	}
	if r.engine != nil {
		it.Entities = r.engine.Match(n.Desc.Query)
	}
	if n.Desc.NoReadonly {
		it.SetSink(func(op func()) { op() })
	} else {
		it.SetSink(r.deferOp)
	}

	start := time.Now()
	switch {
	case n.Desc.Run != nil:
		n.Desc.Run(it)
	case n.Desc.Each != nil:
		for _, e := range it.Entities {
			n.Desc.Each(it, e)
		}
	}
	elapsed := time.Since(start)

	slog.Debug("system ran",
		"system", n.Name,
		"entity", uint64(n.Entity),
		"tick", r.tick,
		"duration", elapsed,
	)
	return RanSystem{Entity: n.Entity, Name: n.Name, Duration: elapsed}
}

func (r *Runner) deferOp(op func()) {
	r.stageMu.Lock()
	defer r.stageMu.Unlock()
	r.staged = append(r.staged, op)
}

// flushStaged applies deferred structural mutations in submission order.
func (r *Runner) flushStaged() {
	r.stageMu.Lock()
	ops := r.staged
	r.staged = nil
	r.stageMu.Unlock()

	for _, op := range ops {
		op()
	}
}

// fire marks an entity as having ticked this frame.
func (r *Runner) fire(e entity.Entity) {
	st := r.state(e)
	st.ticked = true
	st.count++
}

func (r *Runner) state(e entity.Entity) *tickState {
	st := r.states[e]
	if st == nil {
		st = &tickState{}
		r.states[e] = st
	}
	return st
}
