package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func execConform(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewConformCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConform_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "01_accept.yaml", `
name: accept
description: fresh candidate accepted
steps:
  - submit:
      counter: 100
      nonce: 0x12345678
      expect: {valid: true, bad_counter: false, bad_nonce: false}
assertions:
  - type: counter_value
    value: 100
`)

	out, err := execConform(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS  accept")
	assert.Contains(t, out, "1 passed, 0 failed")
}

func TestConform_ReportsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "01_broken.yaml", `
name: broken
description: expectation contradicts the engine
steps:
  - submit:
      counter: 0
      nonce: 0x12345678
      expect: {valid: true, bad_counter: false, bad_nonce: false}
`)

	out, err := execConform(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL  broken")
	assert.Contains(t, out, "0 passed, 1 failed")
}

func TestConform_MalformedScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "01_bad.yaml", "name: bad\n")

	_, err := execConform(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConform_EmptyDirectory(t *testing.T) {
	_, err := execConform(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
