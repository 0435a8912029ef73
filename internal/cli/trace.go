package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbarthelmes/flecs/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunToken string
	System   string // optional - filter to a specific system
}

// TraceEvent represents a single journaled system run.
type TraceEvent struct {
	Tick       int64  `json:"tick"`
	System     string `json:"system"`
	Entity     uint64 `json:"entity"`
	DurationNS int64  `json:"duration_ns"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalRuns int   `json:"total_runs"`
	Ticks     int64 `json:"ticks"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunToken string       `json:"run_token"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a journaled run",
		Long: `Read the journal written by the run command.

Without --run, lists the run tokens present in the journal. With --run,
prints the timeline of system runs for that session, tick by tick.

Examples:
  flecs trace --db ./flecs.db
  flecs trace --db ./flecs.db --run 0190a5e2-...
  flecs trace --db ./flecs.db --run 0190a5e2-... --system Move --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to trace")
	cmd.Flags().StringVar(&opts.System, "system", "", "filter to a specific system")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.RunToken == "" {
		return listRunTokens(ctx, j, formatter)
	}

	runs, err := j.ReadRuns(ctx, opts.RunToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}
	if len(runs) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no runs recorded for token %s", opts.RunToken), nil)
		return NewExitError(ExitCommandError, "run token not found")
	}

	result := TraceResult{RunToken: opts.RunToken}
	for _, run := range runs {
		if opts.System != "" && run.Name != opts.System {
			continue
		}
		result.Timeline = append(result.Timeline, TraceEvent{
			Tick:       run.Tick,
			System:     run.Name,
			Entity:     run.Entity,
			DurationNS: run.Duration.Nanoseconds(),
		})
		if run.Tick > result.Stats.Ticks {
			result.Stats.Ticks = run.Tick
		}
	}
	result.Stats.TotalRuns = len(result.Timeline)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "run %s: %d run(s) over %d tick(s)\n",
		result.RunToken, result.Stats.TotalRuns, result.Stats.Ticks)
	lastTick := int64(-1)
	for _, ev := range result.Timeline {
		if ev.Tick != lastTick {
			fmt.Fprintf(formatter.Writer, "tick %d\n", ev.Tick)
			lastTick = ev.Tick
		}
		fmt.Fprintf(formatter.Writer, "  %s (%dns)\n", ev.System, ev.DurationNS)
	}
	return nil
}

// listRunTokens prints every run token in the journal.
func listRunTokens(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	tokens, err := j.RunTokens(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list run tokens", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"run_tokens": tokens})
	}

	if len(tokens) == 0 {
		fmt.Fprintln(formatter.Writer, "journal is empty")
		return nil
	}
	for _, tok := range tokens {
		fmt.Fprintln(formatter.Writer, tok)
	}
	return nil
}
