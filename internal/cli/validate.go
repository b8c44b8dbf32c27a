package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/replaygate/internal/audit"
	"github.com/halcyonlabs/replaygate/internal/config"
	"github.com/halcyonlabs/replaygate/internal/engine"
	"github.com/halcyonlabs/replaygate/internal/frame"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Counter  string
	Nonce    string
	Frame    string
	Profile  string
	Database string
	Channel  string
}

// ValidateResult holds the verdict for one candidate.
type ValidateResult struct {
	Handle     string `json:"handle"`
	Seq        int64  `json:"seq"`
	Counter    uint32 `json:"counter"`
	Nonce      uint32 `json:"nonce"`
	Valid      bool   `json:"valid"`
	BadCounter bool   `json:"bad_counter"`
	BadNonce   bool   `json:"bad_nonce"`
	Channel    string `json:"channel,omitempty"`
	Recorded   bool   `json:"recorded,omitempty"`
}

func (r ValidateResult) String() string {
	var b strings.Builder
	b.WriteString(verdictWord(r.Valid, r.BadCounter, r.BadNonce))
	writeField(&b, "counter", r.Counter)
	writeField(&b, "nonce", hexNonce(r.Nonce))
	writeField(&b, "handle", r.Handle)
	writeField(&b, "seq", r.Seq)
	if r.Recorded {
		writeField(&b, "channel", r.Channel)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one candidate against the anti-replay checks",
		Long: `Validate a (counter, nonce) candidate through the full
submit/poll/acknowledge exchange.

The candidate is given directly with --counter and --nonce, or decoded
from an encoded frame file with --frame. When an audit database is
configured, the engine resumes the channel's committed counter and seq
before validating, and the verdict is appended to the channel's chain.

Examples:
  replaygate validate --counter 100 --nonce 0x12345678
  replaygate validate --frame msg.bin --db ./verdicts.db
  replaygate validate --profile prod.yaml --counter 101 --nonce 0xF0000001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Counter, "counter", "", "candidate counter value")
	cmd.Flags().StringVar(&opts.Nonce, "nonce", "", "candidate nonce (decimal or 0x hex)")
	cmd.Flags().StringVar(&opts.Frame, "frame", "", "path to an encoded frame to decode and validate")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "path to a YAML validation profile")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite verdict log (overrides profile)")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "verdict log channel (defaults to profile name)")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	profile, err := loadProfile(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load profile", err)
	}

	counter, nonce, err := resolveCandidate(opts, formatter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid candidate", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = profile.AuditDB
	}
	channel := opts.Channel
	if channel == "" {
		channel = profile.Name
	}

	engineOpts := profile.EngineOptions()

	var store *audit.Store
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if dbPath != "" {
		store, err = audit.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open verdict log", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing verdict log", "error", closeErr)
			}
		}()

		resumeOpts, err := resumeFromLog(ctx, store, channel)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to resume channel state", err)
		}
		engineOpts = append(engineOpts, resumeOpts...)
	}

	eng, err := engine.New(engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build engine", err)
	}

	if store != nil {
		nonces, err := store.AcceptedNonces(ctx, channel, profile.CacheCapacity)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to warm replay cache", err)
		}
		eng.WarmCache(nonces)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(runCtx)

	formatter.VerboseLog("submitting candidate counter=%d nonce=0x%08X", counter, nonce)

	h, err := eng.Submit(counter, nonce)
	if err != nil {
		return WrapExitError(ExitCommandError, "submit failed", err)
	}

	interval := time.Duration(profile.PollIntervalMS) * time.Millisecond
	v, err := eng.Await(ctx, h, profile.PollBudget, interval)
	if err != nil {
		return WrapExitError(ExitCommandError, "verdict not ready within poll budget", err)
	}

	if err := eng.Acknowledge(h); err != nil {
		return WrapExitError(ExitCommandError, "acknowledge failed", err)
	}

	result := ValidateResult{
		Handle:     string(v.Handle),
		Seq:        v.Seq,
		Counter:    v.Counter,
		Nonce:      v.Nonce,
		Valid:      v.Valid,
		BadCounter: v.BadCounter,
		BadNonce:   v.BadNonce,
	}

	if store != nil {
		if _, err := store.Record(ctx, channel, *v); err != nil {
			return WrapExitError(ExitCommandError, "failed to record verdict", err)
		}
		result.Channel = channel
		result.Recorded = true
	}

	if err := formatter.Success(result); err != nil {
		return err
	}

	if !v.Valid {
		return NewExitError(ExitFailure, "candidate rejected")
	}
	return nil
}

// resolveCandidate extracts the (counter, nonce) pair from either the
// frame file or the explicit flags.
func resolveCandidate(opts *ValidateOptions, formatter *OutputFormatter) (uint32, uint32, error) {
	if opts.Frame != "" {
		if opts.Counter != "" || opts.Nonce != "" {
			return 0, 0, fmt.Errorf("--frame is exclusive with --counter/--nonce")
		}
		raw, err := os.ReadFile(opts.Frame)
		if err != nil {
			return 0, 0, err
		}
		f, err := frame.Decode(raw)
		if err != nil {
			return 0, 0, err
		}
		formatter.VerboseLog("decoded frame: counter=%d nonce=0x%08X payload=%dB", f.Counter, f.Nonce, len(f.Payload))
		return f.Counter, f.Nonce, nil
	}

	if opts.Counter == "" || opts.Nonce == "" {
		return 0, 0, fmt.Errorf("either --frame or both --counter and --nonce are required")
	}
	counter, err := parseU32(opts.Counter)
	if err != nil {
		return 0, 0, err
	}
	nonce, err := parseU32(opts.Nonce)
	if err != nil {
		return 0, 0, err
	}
	return counter, nonce, nil
}

// resumeFromLog derives engine start state from the channel's recorded
// history, so a one-shot validation continues where the last one left off.
func resumeFromLog(ctx context.Context, store *audit.Store, channel string) ([]engine.Option, error) {
	var opts []engine.Option

	counter, found, err := store.LastAcceptedCounter(ctx, channel)
	if err != nil {
		return nil, err
	}
	if found {
		opts = append(opts, engine.WithCounterStart(counter))
	}

	seq, err := store.LastSeq(ctx, channel)
	if err != nil {
		return nil, err
	}
	if seq > 0 {
		opts = append(opts, engine.WithClockStart(seq))
	}

	return opts, nil
}

func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
