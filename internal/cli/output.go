package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// OutputFormatter renders command results as text or JSON. Errors never go
// through it; they surface as ExitErrors and print on stderr in main.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output, defaults to Writer
	Verbose   bool
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}

// envelope wraps JSON output so callers can distinguish payload from status
// without sniffing the payload shape.
type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success outputs a result in the configured format.
// Text mode expects data to carry its own String rendering.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(envelope{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// VerboseLog outputs a diagnostic line only when verbose mode is on.
// Goes to ErrWriter so JSON on stdout stays intact.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// verdictWord renders a composite verdict the way operators read it:
// ACCEPTED, or REJECTED followed by each failed check.
func verdictWord(valid, badCounter, badNonce bool) string {
	if valid {
		return "ACCEPTED"
	}
	var b strings.Builder
	b.WriteString("REJECTED")
	if badCounter {
		b.WriteString(" bad-counter")
	}
	if badNonce {
		b.WriteString(" bad-nonce")
	}
	return b.String()
}

// hexNonce is the fixed-width nonce form shared by every command's output,
// matching the 0x notation the parsers accept.
func hexNonce(n uint32) string {
	return fmt.Sprintf("0x%08X", n)
}

// writeField appends one aligned "name: value" detail line under a status
// line.
func writeField(b *strings.Builder, name string, value any) {
	fmt.Fprintf(b, "\n  %-8s %v", name+":", value)
}

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution, candidate accepted
	ExitFailure      = 1 // Candidate rejected or scenarios failed
	ExitCommandError = 2 // Command error (bad flags, missing files, broken database)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional underlying cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
