package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/telemetryd/internal/event"
	"github.com/roach88/telemetryd/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Entity  string
	Order   string // "arrival" | "seq"
}

// TraceEvent is one journal row in the timeline.
type TraceEvent struct {
	Arrival   int64             `json:"arrival"`
	Seq       int64             `json:"seq"`
	Kind      string            `json:"kind"`
	Outcome   string            `json:"outcome"`
	Payload   map[string]string `json:"payload"`
	EventTime string            `json:"event_time,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// TraceResult holds the timeline of one entity.
type TraceResult struct {
	Entity   string       `json:"entity"`
	Order    string       `json:"order"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats counts the timeline's rows by outcome.
type TraceStats struct {
	Total     int `json:"total"`
	Applied   int `json:"applied"`
	Buffered  int `json:"buffered"`
	Discarded int `json:"discarded"`
}

// EntitySummary is one row of the entity listing.
type EntitySummary struct {
	Entity   string `json:"entity"`
	Arrivals int64  `json:"arrivals"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled arrivals",
		Long: `Show what the arrival journal recorded.

Without --entity, lists every journaled entity with its arrival count.
With --entity, shows that entity's timeline: each delivery with its
sequence number, kind, outcome and payload.

Examples:
  telemetryd trace --journal ./arrivals.db
  telemetryd trace --journal ./arrivals.db --entity 193270a9-c9cf-404a-8f83-838e71d9ae67
  telemetryd trace --journal ./arrivals.db --entity 193270a9 --order seq --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite arrival journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity to trace")
	cmd.Flags().StringVar(&opts.Order, "order", "arrival", "timeline order (arrival|seq)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	order, err := parseOrder(opts.Order)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid order", err)
	}

	st, err := openJournal(opts.Journal)
	if err != nil {
		return err
	}
	defer st.Close()

	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Entity == "" {
		return listEntities(ctx, st, f)
	}

	arrivals, err := st.ReadArrivals(ctx, opts.Entity, order)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if len(arrivals) == 0 {
		msg := fmt.Sprintf("no arrivals found for entity %s", opts.Entity)
		if err := f.Error(ErrCodeNoArrivals, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	result := TraceResult{
		Entity:   opts.Entity,
		Order:    opts.Order,
		Timeline: buildTimeline(arrivals),
	}
	result.Stats = summarize(result.Timeline)

	if opts.Format == "json" {
		return f.Success(result)
	}
	outputTraceText(f.Writer, result, opts.Verbose)
	return nil
}

func parseOrder(s string) (store.Order, error) {
	switch strings.ToLower(s) {
	case "arrival", "":
		return store.ByArrival, nil
	case "seq":
		return store.BySeq, nil
	default:
		return 0, fmt.Errorf("unknown order %q: must be arrival or seq", s)
	}
}

// listEntities prints every journaled entity with its arrival count.
func listEntities(ctx context.Context, st *store.Store, f *OutputFormatter) error {
	ids, err := st.ListEntities(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list entities", err)
	}

	summaries := make([]EntitySummary, 0, len(ids))
	for _, id := range ids {
		n, err := st.CountArrivals(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count arrivals", err)
		}
		summaries = append(summaries, EntitySummary{Entity: id, Arrivals: n})
	}

	if f.Format == "json" {
		return f.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(f.Writer, "No arrivals found in journal.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(f.Writer, "%s  %d arrival(s)\n", s.Entity, s.Arrivals)
	}
	f.VerboseLog("%d entit(ies)", len(summaries))
	return nil
}

// buildTimeline converts journal rows to timeline events.
func buildTimeline(arrivals []store.Arrival) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(arrivals))
	for _, a := range arrivals {
		payload := map[string]string(a.Payload)
		if payload == nil {
			payload = map[string]string{}
		}
		timeline = append(timeline, TraceEvent{
			Arrival:   a.Arrival,
			Seq:       a.Seq,
			Kind:      a.Kind,
			Outcome:   a.Outcome,
			Payload:   payload,
			EventTime: event.FormatTime(a.EventTime),
			RequestID: a.RequestID,
		})
	}
	return timeline
}

func summarize(timeline []TraceEvent) TraceStats {
	st := TraceStats{Total: len(timeline)}
	for _, te := range timeline {
		switch te.Outcome {
		case "applied":
			st.Applied++
		case "buffered":
			st.Buffered++
		case "discarded":
			st.Discarded++
		}
	}
	return st
}

// outputTraceText outputs the timeline as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Entity: %s (%s order)\n", result.Entity, result.Order)
	fmt.Fprintln(w)

	for _, te := range result.Timeline {
		fmt.Fprintf(w, "[%d] #%d %s -> %s", te.Arrival, te.Seq, te.Kind, te.Outcome)
		if len(te.Payload) > 0 {
			fmt.Fprintf(w, " %s", formatPayload(te.Payload))
		}
		fmt.Fprintln(w)
		if verbose {
			if te.EventTime != "" {
				fmt.Fprintf(w, "    time: %s\n", te.EventTime)
			}
			if te.RequestID != "" {
				fmt.Fprintf(w, "    request: %s\n", te.RequestID)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d (%d applied, %d buffered, %d discarded)\n",
		result.Stats.Total, result.Stats.Applied, result.Stats.Buffered, result.Stats.Discarded)
}

// formatPayload renders a payload as {k: v, ...} with sorted keys.
func formatPayload(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, p[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
