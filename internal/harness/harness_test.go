package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AcceptsFreshCandidate(t *testing.T) {
	scenario := &Scenario{
		Name:        "accept",
		Description: "Fresh counter and nonce are accepted",
		Steps: []Step{
			{Submit: &SubmitStep{
				Counter: 100,
				Nonce:   0x12345678,
				Expect:  &Expect{Valid: true},
			}},
		},
		Assertions: []Assertion{
			{Type: "counter_value", Value: 100},
			{Type: "cache_len", Value: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Passed)
	assert.Empty(t, result.Failures)

	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, "verdict", ev.Type)
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, "req-0001", ev.Handle)
	assert.Equal(t, uint32(100), ev.Counter)
	assert.True(t, ev.Valid)
}

func TestRun_ReportsVerdictMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Expect clause disagrees with the verdict",
		Steps: []Step{
			{Submit: &SubmitStep{
				Counter: 0, // never greater than the zero counter
				Nonce:   0x12345678,
				Expect:  &Expect{Valid: true},
			}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "bad_counter=true")
}

func TestRun_ReportsFailedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_assertion",
		Description: "Final-state assertion does not hold",
		Steps: []Step{
			{Advance: 3},
		},
		Assertions: []Assertion{
			{Type: "counter_value", Value: 7},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "counter_value")
}

func TestRun_NonceDrawsAreTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "nonce_trace",
		Description: "Nonce draws appear in the trace",
		Steps: []Step{
			{IssueNonce: &IssueNonceStep{Count: 3, ExpectDistinct: true}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Passed)
	require.Len(t, result.Trace, 3)
	for _, ev := range result.Trace {
		assert.Equal(t, "nonce", ev.Type)
		assert.NotZero(t, ev.Nonce)
	}
}

func TestRun_SeedIsReproducible(t *testing.T) {
	scenario := &Scenario{
		Name:        "seeded",
		Description: "Same seed yields the same nonce stream",
		Seed:        0xDEADBEEF,
		Steps: []Step{
			{IssueNonce: &IssueNonceStep{Count: 5}},
		},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_AdminStepsAreTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "admin",
		Description: "Admin operations leave trace events",
		Steps: []Step{
			{Advance: 2},
			{Lock: true},
			{ResetCache: true},
		},
		Assertions: []Assertion{
			{Type: "counter_value", Value: 2},
			{Type: "counter_locked", Value: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Passed)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "advance", result.Trace[0].Op)
	assert.Equal(t, uint32(2), result.Trace[0].Counter)
	assert.Equal(t, "lock", result.Trace[1].Op)
	assert.Equal(t, "reset_cache", result.Trace[2].Op)
}

// TestRun_ConformanceSuite drives every scenario under testdata/scenarios.
// These mirror the register-level acceptance checks the engine was built
// against, so a regression in any invariant surfaces here first.
func TestRun_ConformanceSuite(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 8)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Passed, "failures: %v", result.Failures)
		})
	}
}
