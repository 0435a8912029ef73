package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jbarthelmes/flecs/internal/journal"
	"github.com/jbarthelmes/flecs/internal/world"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Ticks    int
	Delta    float64
	Threads  int
	Database string

	// TokenGenerator allows overriding the run token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	TokenGenerator journal.RunTokenGenerator
}

// RunSummary is the run command's result payload.
type RunSummary struct {
	Ticks    int64          `json:"ticks"`
	RunToken string         `json:"run_token,omitempty"`
	Systems  map[string]int `json:"systems"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <defs-dir>",
		Short: "Run a pipeline for a number of ticks",
		Long: `Build a world from pipeline definitions and advance it tick by tick.

With --db, every registration and tick is journaled to a SQLite database
under a fresh run token, for later inspection with the trace command.

Example:
  flecs run ./defs --ticks 60 --delta 0.016
  flecs run ./defs --ticks 100 --db ./flecs.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", 1, "number of ticks to run")
	cmd.Flags().Float64Var(&opts.Delta, "delta", 0.016, "frame delta in seconds")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "thread cap for multi-threaded batches")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")

	return cmd
}

func runPipeline(opts *RunOptions, defsDir string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	if opts.Ticks <= 0 {
		return NewExitError(ExitCommandError, "ticks must be positive")
	}
	if opts.Delta <= 0 {
		return NewExitError(ExitCommandError, "delta must be positive")
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	slog.Info("loading defs", "dir", defsDir)
	p, fileCount, err := loadPipeline(defsDir)
	if err != nil {
		return err
	}
	slog.Info("defs compiled",
		"files", fileCount,
		"phases", len(p.Phases),
		"timers", len(p.Timers),
		"systems", len(p.Systems),
	)

	w, _, err := buildWorld(p, opts.Threads)
	if err != nil {
		return err
	}

	// Open journal when requested
	var j *journal.Journal
	runToken := ""
	if opts.Database != "" {
		slog.Info("opening journal", "path", opts.Database)
		j, err = journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		gen := opts.TokenGenerator
		if gen == nil {
			gen = journal.UUIDv7Generator{}
		}
		runToken = gen.Generate()
		slog.Info("journal ready", "run_token", runToken)
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if j != nil {
		if err := writeRegistrations(ctx, j, w); err != nil {
			return WrapExitError(ExitCommandError, "failed to journal registrations", err)
		}
	}

	summary := RunSummary{RunToken: runToken, Systems: map[string]int{}}
	for i := 0; i < opts.Ticks; i++ {
		report, err := w.Progress(ctx, opts.Delta)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("run interrupted", "tick", summary.Ticks)
				break
			}
			return WrapExitError(ExitFailure, "tick failed", err)
		}
		summary.Ticks = report.Tick
		for _, ran := range report.Ran {
			summary.Systems[ran.Name]++
		}
		if j != nil {
			if err := j.WriteTick(ctx, runToken, report); err != nil {
				return WrapExitError(ExitCommandError, "failed to journal tick", err)
			}
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "ran %d tick(s)\n", summary.Ticks)
	if runToken != "" {
		fmt.Fprintf(formatter.Writer, "run token: %s\n", runToken)
	}
	names := make([]string, 0, len(summary.Systems))
	for name := range summary.Systems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s: %d\n", name, summary.Systems[name])
	}
	return nil
}

// writeRegistrations journals every registered system in execution order.
func writeRegistrations(ctx context.Context, j *journal.Journal, w *world.World) error {
	order, err := w.Graph().Order()
	if err != nil {
		return err
	}
	for _, n := range order {
		if err := j.WriteRegistration(ctx, n.Desc, n.Entity, n.Seq); err != nil {
			return err
		}
	}
	return nil
}
