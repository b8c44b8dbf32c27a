package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/replaygate/internal/engine"
)

// NonceOptions holds flags for the nonce command.
type NonceOptions struct {
	*RootOptions
	Count int
	Seed  string
}

// NonceResult holds the drawn nonces.
type NonceResult struct {
	Seed   uint32   `json:"seed"`
	Nonces []uint32 `json:"nonces"`
}

func (r NonceResult) String() string {
	parts := make([]string, len(r.Nonces))
	for i, n := range r.Nonces {
		parts[i] = hexNonce(n)
	}
	return strings.Join(parts, "\n")
}

// NewNonceCommand creates the nonce command.
func NewNonceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NonceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Draw outbound nonces from a seeded generator",
		Long: `Draw nonces from the LFSR generator.

The same seed always yields the same stream, so peers seeded identically
can predict each other's expected nonces.

Examples:
  replaygate nonce --count 5
  replaygate nonce --seed 0xACE1ACE1 --count 10`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNonce(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 1, "number of nonces to draw")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "generator seed (decimal or 0x hex, nonzero)")

	return cmd
}

func runNonce(opts *NonceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Count < 1 {
		return NewExitError(ExitCommandError, "--count must be at least 1")
	}

	seed := engine.DefaultSeed
	if opts.Seed != "" {
		var err error
		seed, err = parseU32(opts.Seed)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid seed", err)
		}
	}

	gen, err := engine.NewNonceGenerator(seed)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid seed", err)
	}

	result := NonceResult{Seed: seed, Nonces: make([]uint32, opts.Count)}
	for i := range result.Nonces {
		result.Nonces[i] = gen.Next()
	}

	return formatter.Success(result)
}
