package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbarthelmes/flecs/internal/system"
	"github.com/jbarthelmes/flecs/internal/world"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Threads int
}

// GraphUnit describes one schedulable unit in execution order.
type GraphUnit struct {
	Position      int      `json:"position"`
	Name          string   `json:"name"`
	Phase         string   `json:"phase,omitempty"`
	Timing        string   `json:"timing"`
	MultiThreaded bool     `json:"multi_threaded,omitempty"`
	NoReadonly    bool     `json:"no_readonly,omitempty"`
	Predecessors  []string `json:"predecessors,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <defs-dir>",
		Short: "Print the deterministic execution order",
		Long: `Build the scheduling graph from pipeline definitions and print the
execution order the runner would use, with each unit's phase, timing
policy, and direct predecessors.

The order is deterministic: phase rank first, then registration order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "thread cap for multi-threaded batches")

	return cmd
}

func runGraph(opts *GraphOptions, defsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	p, fileCount, err := loadPipeline(defsDir)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, defsDir)

	w, _, err := buildWorld(p, opts.Threads)
	if err != nil {
		return err
	}

	units, err := graphUnits(w)
	if err != nil {
		return WrapExitError(ExitFailure, "ordering failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(units)
	}

	for _, u := range units {
		fmt.Fprintf(formatter.Writer, "%3d. %s", u.Position, u.Name)
		if u.Phase != "" {
			fmt.Fprintf(formatter.Writer, "  [%s]", u.Phase)
		}
		fmt.Fprintf(formatter.Writer, "  (%s)", u.Timing)
		if u.MultiThreaded {
			fmt.Fprint(formatter.Writer, "  multi_threaded")
		}
		if u.NoReadonly {
			fmt.Fprint(formatter.Writer, "  no_readonly")
		}
		if len(u.Predecessors) > 0 {
			fmt.Fprintf(formatter.Writer, "  after %v", u.Predecessors)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

// graphUnits flattens the world's execution order into display records.
func graphUnits(w *world.World) ([]GraphUnit, error) {
	order, err := w.Graph().Order()
	if err != nil {
		return nil, err
	}

	units := make([]GraphUnit, 0, len(order))
	for i, n := range order {
		u := GraphUnit{
			Position:      i + 1,
			Name:          n.Name,
			Timing:        timingString(n.Desc.Timing, w),
			MultiThreaded: n.Desc.MultiThreaded,
			NoReadonly:    n.Desc.NoReadonly,
		}
		if !n.Desc.Phase.IsNull() {
			u.Phase = w.Registry().Name(n.Desc.Phase)
		}
		for _, pred := range w.Graph().Predecessors(n.Entity) {
			if pred == n.Desc.Phase {
				continue
			}
			u.Predecessors = append(u.Predecessors, w.Registry().Name(pred))
		}
		units = append(units, u)
	}
	return units, nil
}

// timingString renders a timing policy for display.
func timingString(tp system.TimingPolicy, w *world.World) string {
	switch tp.Kind {
	case system.TimingInterval:
		return fmt.Sprintf("interval %gs", tp.Interval)
	case system.TimingRate:
		source := "FrameTick"
		if !tp.Source.IsNull() {
			source = w.Registry().Name(tp.Source)
		}
		return fmt.Sprintf("rate %d of %s", tp.Multiplier, source)
	default:
		return "every tick"
	}
}
