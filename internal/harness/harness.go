package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonlabs/replaygate/internal/audit"
	"github.com/halcyonlabs/replaygate/internal/engine"
	"github.com/halcyonlabs/replaygate/internal/testutil"
)

// Poll parameters for scenario runs. Generous budget: a scenario failing
// on scheduling jitter would be noise.
const (
	pollBudget   = 1000
	pollInterval = time.Millisecond
)

// TraceEvent is one observed operation in a scenario run.
type TraceEvent struct {
	Type       string `json:"type"` // "verdict", "nonce" or "admin"
	Seq        int64  `json:"seq,omitempty"`
	Handle     string `json:"handle,omitempty"`
	Counter    uint32 `json:"counter,omitempty"`
	Nonce      uint32 `json:"nonce,omitempty"`
	Valid      bool   `json:"valid,omitempty"`
	BadCounter bool   `json:"bad_counter,omitempty"`
	BadNonce   bool   `json:"bad_nonce,omitempty"`
	Op         string `json:"op,omitempty"`
}

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string       `json:"scenario_name"`
	Passed       bool         `json:"passed"`
	Failures     []string     `json:"failures,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

func (r *Result) failf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run executes a scenario against a fresh engine and an in-memory verdict
// log. Deterministic handles and timestamps make the trace reproducible.
func Run(scenario *Scenario) (*Result, error) {
	seed := scenario.Seed
	if seed == 0 {
		seed = engine.DefaultSeed
	}

	eng, err := engine.New(
		engine.WithSeed(seed),
		engine.WithCacheCapacity(scenario.CacheCapacity),
		engine.WithHandleGenerator(testutil.NewSequentialHandles("req")),
	)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx) //nolint:errcheck // worker exits with the context

	log, err := audit.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open verdict log: %w", err)
	}
	defer log.Close()

	result := &Result{ScenarioName: scenario.Name, Trace: []TraceEvent{}}

	for i, step := range scenario.Steps {
		if err := runStep(ctx, eng, log, scenario, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	evalAssertions(ctx, eng, log, scenario, result)

	// The verdict chain must survive every scenario untampered.
	if err := log.Verify(ctx, scenario.Name); err != nil {
		result.failf("verdict log: %v", err)
	}

	result.Passed = len(result.Failures) == 0
	return result, nil
}

func runStep(ctx context.Context, eng *engine.Engine, log *audit.Store, scenario *Scenario, step Step, result *Result) error {
	switch {
	case step.Submit != nil:
		return runSubmit(ctx, eng, log, scenario.Name, *step.Submit, result)

	case step.IssueNonce != nil:
		seen := make(map[uint32]bool, step.IssueNonce.Count)
		for i := 0; i < step.IssueNonce.Count; i++ {
			n := eng.IssueNonce()
			if step.IssueNonce.ExpectDistinct && seen[n] {
				result.failf("nonce %08x repeated on draw %d", n, i+1)
			}
			seen[n] = true
			result.Trace = append(result.Trace, TraceEvent{Type: "nonce", Nonce: n})
		}
		return nil

	case step.Advance > 0:
		for i := 0; i < step.Advance; i++ {
			eng.AdvanceCounter()
		}
		result.Trace = append(result.Trace, TraceEvent{Type: "admin", Op: "advance", Counter: eng.CounterValue()})
		return nil

	case step.Lock:
		eng.LockCounter()
		result.Trace = append(result.Trace, TraceEvent{Type: "admin", Op: "lock"})
		return nil

	case step.ResetCache:
		eng.ResetCache()
		result.Trace = append(result.Trace, TraceEvent{Type: "admin", Op: "reset_cache"})
		return nil

	case step.ResetState:
		eng.ResetState()
		result.Trace = append(result.Trace, TraceEvent{Type: "admin", Op: "reset_state"})
		return nil

	default:
		return fmt.Errorf("empty step")
	}
}

func runSubmit(ctx context.Context, eng *engine.Engine, log *audit.Store, channel string, step SubmitStep, result *Result) error {
	h, err := eng.Submit(step.Counter, step.Nonce)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	v, err := eng.Await(ctx, h, pollBudget, pollInterval)
	if err != nil {
		return fmt.Errorf("await: %w", err)
	}

	if err := eng.Acknowledge(h); err != nil {
		return fmt.Errorf("acknowledge: %w", err)
	}

	// Deterministic timestamp derived from the verdict's logical seq.
	if _, err := log.RecordAt(ctx, channel, *v, v.Seq*1000); err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}

	result.Trace = append(result.Trace, TraceEvent{
		Type:       "verdict",
		Seq:        v.Seq,
		Handle:     string(v.Handle),
		Counter:    v.Counter,
		Nonce:      v.Nonce,
		Valid:      v.Valid,
		BadCounter: v.BadCounter,
		BadNonce:   v.BadNonce,
	})

	if e := step.Expect; e != nil {
		if v.Valid != e.Valid || v.BadCounter != e.BadCounter || v.BadNonce != e.BadNonce {
			result.failf("candidate (%d, %08x): got valid=%t bad_counter=%t bad_nonce=%t, want valid=%t bad_counter=%t bad_nonce=%t",
				step.Counter, step.Nonce,
				v.Valid, v.BadCounter, v.BadNonce,
				e.Valid, e.BadCounter, e.BadNonce)
		}
	}
	return nil
}

func evalAssertions(ctx context.Context, eng *engine.Engine, log *audit.Store, scenario *Scenario, result *Result) {
	for _, a := range scenario.Assertions {
		switch a.Type {
		case "counter_value":
			if got := int64(eng.CounterValue()); got != a.Value {
				result.failf("counter_value: got %d, want %d", got, a.Value)
			}

		case "counter_locked":
			want := a.Value != 0
			if eng.CounterLocked() != want {
				result.failf("counter_locked: got %t, want %t", eng.CounterLocked(), want)
			}

		case "cache_len":
			if got := int64(eng.CacheLen()); got != a.Value {
				result.failf("cache_len: got %d, want %d", got, a.Value)
			}

		case "rejected_count":
			n, err := log.CountRejected(ctx, scenario.Name)
			if err != nil {
				result.failf("rejected_count: %v", err)
				continue
			}
			if int64(n) != a.Value {
				result.failf("rejected_count: got %d, want %d", n, a.Value)
			}
		}
	}
}
