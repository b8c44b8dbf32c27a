package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/replaygate/internal/audit"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Database string
	Channel  string
}

// ResetResult reports what the purge removed.
type ResetResult struct {
	Channel string `json:"channel"`
	Removed int64  `json:"removed"`
}

func (r ResetResult) String() string {
	return fmt.Sprintf("purged %d verdict(s) from channel %s", r.Removed, r.Channel)
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Purge a channel's verdict history",
		Long: `Delete every recorded verdict for a channel. The channel's
resume state (committed counter, seq, cached nonces) is discarded with
it, and the next validation starts from scratch.

Example:
  replaygate reset --db ./verdicts.db --channel default`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite verdict log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel to purge (required)")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
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

	removed, err := store.Purge(ctx, opts.Channel)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to purge channel", err)
	}

	return formatter.Success(ResetResult{Channel: opts.Channel, Removed: removed})
}
