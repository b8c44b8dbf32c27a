package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execReset(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewResetCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestReset_PurgesChannel(t *testing.T) {
	dbPath := seedVerdictLog(t)

	out, err := execReset(t, "--db", dbPath, "--channel", "link-a")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 3 verdict(s) from channel link-a")

	// The channel validates from scratch afterwards.
	out, err = execTrace(t, "text", "--db", dbPath, "--channel", "link-a")
	require.NoError(t, err)
	assert.Contains(t, out, "0 verdicts")
}

func TestReset_EmptyChannel(t *testing.T) {
	dbPath := seedVerdictLog(t)

	out, err := execReset(t, "--db", dbPath, "--channel", "never-used")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 0 verdict(s)")
}

func TestReset_MissingFlags(t *testing.T) {
	_, err := execReset(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
