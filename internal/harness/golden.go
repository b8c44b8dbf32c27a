package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/halcyonlabs/replaygate/internal/audit"
)

// toCanonicalMap converts a Result to a map[string]any so the trace can be
// serialized with audit.MarshalCanonical. Canonical JSON keeps golden files
// byte-stable across Go versions.
func (r *Result) toCanonicalMap() map[string]any {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		m := map[string]any{
			"type": ev.Type,
		}
		switch ev.Type {
		case "verdict":
			m["seq"] = ev.Seq
			m["handle"] = ev.Handle
			m["counter"] = ev.Counter
			m["nonce"] = ev.Nonce
			m["valid"] = ev.Valid
			m["bad_counter"] = ev.BadCounter
			m["bad_nonce"] = ev.BadNonce
		case "nonce":
			m["nonce"] = ev.Nonce
		case "admin":
			m["op"] = ev.Op
			if ev.Op == "advance" {
				m["counter"] = ev.Counter
			}
		}
		trace[i] = m
	}

	return map[string]any{
		"scenario_name": r.ScenarioName,
		"trace":         trace,
	}
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, f := range result.Failures {
		t.Errorf("%s: %s", scenario.Name, f)
	}

	traceJSON, err := audit.MarshalCanonical(result.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
