package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/replaygate/internal/audit"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Channel  string
	Limit    int
}

// TraceStats summarizes a channel's verdict history.
type TraceStats struct {
	Total    int  `json:"total"`
	Accepted int  `json:"accepted"`
	Rejected int  `json:"rejected"`
	ChainOK  bool `json:"chain_ok"`
}

// TraceResult holds the channel dump.
type TraceResult struct {
	Channel string        `json:"channel"`
	Entries []audit.Entry `json:"entries"`
	Stats   TraceStats    `json:"stats"`
}

func (r TraceResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "channel %s: %d verdicts (%d accepted, %d rejected)", r.Channel, r.Stats.Total, r.Stats.Accepted, r.Stats.Rejected)
	if r.Stats.ChainOK {
		b.WriteString(", chain intact")
	} else {
		b.WriteString(", CHAIN BROKEN")
	}
	for _, e := range r.Entries {
		status := "accept"
		if !e.Valid {
			status = "reject"
			if e.BadCounter {
				status += " bad-counter"
			}
			if e.BadNonce {
				status += " bad-nonce"
			}
		}
		fmt.Fprintf(&b, "\n  seq %-5d counter=%-10d nonce=%s  %s", e.Seq, e.Counter, hexNonce(e.Nonce), status)
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump a channel's verdict log",
		Long: `Dump the recorded verdict history for a channel and verify
its hash chain.

Examples:
  replaygate trace --db ./verdicts.db --channel default
  replaygate trace --db ./verdicts.db --channel default --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite verdict log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Channel, "channel", "default", "channel to dump")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to show (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := audit.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open verdict log", err)
	}
	defer store.Close()

	entries, err := store.List(ctx, opts.Channel, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list verdicts", err)
	}

	rejected, err := store.CountRejected(ctx, opts.Channel)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count rejections", err)
	}

	result := TraceResult{
		Channel: opts.Channel,
		Entries: entries,
		Stats: TraceStats{
			Rejected: rejected,
			ChainOK:  true,
		},
	}

	// Stats cover the whole channel even when --limit trims the listing.
	total, err := store.Count(ctx, opts.Channel)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count verdicts", err)
	}
	result.Stats.Total = total
	result.Stats.Accepted = total - rejected

	if err := store.Verify(ctx, opts.Channel); err != nil {
		result.Stats.ChainOK = false
		formatter.VerboseLog("chain verification failed: %v", err)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}

	if !result.Stats.ChainOK {
		return NewExitError(ExitFailure, "verdict chain broken")
	}
	return nil
}
