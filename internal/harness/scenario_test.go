package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Full(t *testing.T) {
	path := writeScenario(t, "full.yaml", `
name: full
description: every field exercised
seed: 0xACE1ACE1
cache_capacity: 16
steps:
  - submit:
      counter: 100
      nonce: 0x12345678
      expect: {valid: true, bad_counter: false, bad_nonce: false}
  - issue_nonce:
      count: 3
      expect_distinct: true
  - advance: 2
  - lock: true
assertions:
  - type: counter_value
    value: 100
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "full", s.Name)
	assert.Equal(t, uint32(0xACE1ACE1), s.Seed)
	assert.Equal(t, 16, s.CacheCapacity)
	require.Len(t, s.Steps, 4)

	require.NotNil(t, s.Steps[0].Submit)
	assert.Equal(t, uint32(100), s.Steps[0].Submit.Counter)
	assert.Equal(t, uint32(0x12345678), s.Steps[0].Submit.Nonce)
	require.NotNil(t, s.Steps[0].Submit.Expect)
	assert.True(t, s.Steps[0].Submit.Expect.Valid)

	require.NotNil(t, s.Steps[1].IssueNonce)
	assert.Equal(t, 3, s.Steps[1].IssueNonce.Count)
	assert.True(t, s.Steps[1].IssueNonce.ExpectDistinct)

	assert.Equal(t, 2, s.Steps[2].Advance)
	assert.True(t, s.Steps[3].Lock)

	require.Len(t, s.Assertions, 1)
	assert.Equal(t, "counter_value", s.Assertions[0].Type)
	assert.Equal(t, int64(100), s.Assertions[0].Value)
}

func TestLoadScenario_MissingName(t *testing.T) {
	path := writeScenario(t, "unnamed.yaml", `
description: no name
steps:
  - advance: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestLoadScenario_NoSteps(t *testing.T) {
	path := writeScenario(t, "empty.yaml", `
name: empty
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestLoadScenario_AmbiguousStep(t *testing.T) {
	path := writeScenario(t, "ambiguous.yaml", `
name: ambiguous
steps:
  - advance: 1
    lock: true
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one operation")
}

func TestLoadScenario_EmptyStep(t *testing.T) {
	path := writeScenario(t, "hollow.yaml", `
name: hollow
steps:
  - {}
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one operation")
}

func TestLoadScenario_UnknownAssertion(t *testing.T) {
	path := writeScenario(t, "badassert.yaml", `
name: badassert
steps:
  - advance: 1
assertions:
  - type: entropy_level
    value: 9
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestLoadDir_SortedByFilename(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []struct{ file, name string }{
		{"02_second.yaml", "second"},
		{"01_first.yaml", "first"},
	} {
		content := "name: " + f.name + "\nsteps:\n  - advance: 1\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.file), []byte(content), 0o644))
	}

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)
}

func TestLoadDir_EmptyDirectory(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}

func TestLoadDir_ShippedScenariosAreWellFormed(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	assert.NotEmpty(t, scenarios)

	seen := map[string]bool{}
	for _, s := range scenarios {
		assert.False(t, seen[s.Name], "duplicate scenario name %q", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Description, "scenario %q has no description", s.Name)
	}
}
