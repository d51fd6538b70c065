package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/telemetryd/internal/entity"
	"github.com/roach88/telemetryd/internal/ingest"
	"github.com/roach88/telemetryd/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	Entity  string // optional - specific entity only
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from the journal and verify order independence",
		Long: `Rebuild entity state from the arrival journal twice, once in arrival
order and once in sequence order, each into a fresh registry, and verify
that both produce identical states.

Exit codes:
  0 - Every entity rebuilds identically
  1 - One or more entities differ between orders
  2 - Command error (journal not found, unreadable, etc.)

Examples:
  telemetryd replay --journal ./arrivals.db
  telemetryd replay --journal ./arrivals.db --entity 193270a9-c9cf-404a-8f83-838e71d9ae67
  telemetryd replay --journal ./arrivals.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite arrival journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "replay a single entity only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openJournal(opts.Journal)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := ingest.Replay(ctx, st, opts.Entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}

	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Format == "json" {
		if report.OK() {
			return f.Success(report)
		}
		if err := f.Failure(ErrCodeReplayMismatch, "replay orders disagree", report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay orders disagree")
	}

	return outputReplayText(cmd, report, opts.Verbose)
}

// openJournal opens an existing journal. store.Open would create a missing
// file, which is never what a reader wants.
func openJournal(path string) (*store.Store, error) {
	if err := requireFile(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// outputReplayText outputs the replay report as text.
func outputReplayText(cmd *cobra.Command, report ingest.ReplayReport, verbose bool) error {
	w := cmd.OutOrStdout()

	if report.Arrivals == 0 {
		fmt.Fprintln(w, "No arrivals found in journal.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d arrival(s), %d entit(ies)\n", report.Arrivals, report.Entities)
	fmt.Fprintln(w)

	mismatched := make(map[string]ingest.Mismatch, len(report.Mismatches))
	for _, m := range report.Mismatches {
		mismatched[m.EntityID] = m
	}

	for _, s := range report.States {
		m, bad := mismatched[s.ID]
		status := "✓"
		if bad {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", status, s.ID)

		if verbose || bad {
			if s.Created() {
				fmt.Fprintf(w, "  %s %s speed=%d status=%s\n", s.Type, s.Mission, s.Speed, s.Status)
			} else {
				fmt.Fprintln(w, "  awaiting creation")
			}
			fmt.Fprintf(w, "  lastMessageNumber: %d\n", s.LastSeq)
		}
		if bad {
			fmt.Fprintf(w, "  arrival order:  %s\n", describeState(m.ByArrival))
			fmt.Fprintf(w, "  sequence order: %s\n", describeState(m.BySeq))
		}
	}
	fmt.Fprintln(w)

	if report.OK() {
		fmt.Fprintln(w, "✓ Arrival and sequence order agree")
		return nil
	}

	fmt.Fprintf(w, "✗ %d entit(ies) differ between orders\n", len(report.Mismatches))
	return NewExitError(ExitFailure, "replay orders disagree")
}

func describeState(s entity.State) string {
	return fmt.Sprintf("speed=%d mission=%s status=%s lastMessageNumber=%d", s.Speed, s.Mission, s.Status, s.LastSeq)
}

// requireFile fails unless path names an existing regular file.
func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
