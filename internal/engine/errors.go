package engine

import (
	"errors"
	"fmt"
)

// EngineError represents a caller-facing engine failure.
//
// Rejections (bad counter, bad nonce) are NOT errors - they are reported in
// the Verdict, because rejecting stale traffic is the engine doing its job.
// EngineError covers misuse of the request lifecycle:
//   - Busy: second submission while a request is outstanding
//   - Invalid seed: zero LFSR reseed
//   - Unknown handle: poll/acknowledge with a stale or foreign handle
//   - Poll budget: bounded await gave up before the verdict was ready
//
// Counter exhaustion is likewise not an error: a saturated channel keeps
// answering, rejecting every candidate, and Exhausted() tells the caller
// it is time to rekey.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Handle identifies the affected request, when one exists.
	Handle Handle
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeBusy indicates a submission while a request is outstanding.
	ErrCodeBusy ErrorCode = "ENGINE_BUSY"

	// ErrCodeInvalidSeed indicates a zero LFSR reseed value.
	ErrCodeInvalidSeed ErrorCode = "INVALID_SEED"

	// ErrCodeUnknownHandle indicates a poll or acknowledge against a handle
	// the engine does not currently track.
	ErrCodeUnknownHandle ErrorCode = "UNKNOWN_HANDLE"

	// ErrCodePollBudget indicates a bounded await ran out of attempts.
	// Distinct from rejection: the caller got no answer, not a "no".
	ErrCodePollBudget ErrorCode = "POLL_BUDGET_EXCEEDED"

	// ErrCodeNotReady indicates an acknowledge before the verdict was ready.
	ErrCodeNotReady ErrorCode = "VERDICT_PENDING"
)

func (e *EngineError) Error() string {
	if e.Handle != "" {
		return fmt.Sprintf("%s: %s (handle %s)", e.Code, e.Message, e.Handle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same error code.
// Enables errors.Is(err, ErrEngineBusy) style checks against the sentinels.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// Sentinel values for errors.Is comparisons.
var (
	ErrEngineBusy    = &EngineError{Code: ErrCodeBusy, Message: "a request is already outstanding"}
	ErrInvalidSeed   = &EngineError{Code: ErrCodeInvalidSeed, Message: "seed must be non-zero"}
	ErrUnknownHandle = &EngineError{Code: ErrCodeUnknownHandle, Message: "no such request"}
	ErrPollBudget    = &EngineError{Code: ErrCodePollBudget, Message: "no verdict within poll budget"}
	ErrNotReady      = &EngineError{Code: ErrCodeNotReady, Message: "verdict not yet ready"}
)

func busyError(outstanding Handle) error {
	return &EngineError{
		Code:    ErrCodeBusy,
		Message: "a request is already outstanding",
		Handle:  outstanding,
	}
}

func unknownHandleError(h Handle) error {
	return &EngineError{
		Code:    ErrCodeUnknownHandle,
		Message: "no such request",
		Handle:  h,
	}
}
