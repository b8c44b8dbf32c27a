package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_SuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(ResetResult{Channel: "default", Removed: 3}))
	assert.Contains(t, buf.String(), "purged 3 verdict(s) from channel default")
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(ResetResult{Channel: "default", Removed: 3}))

	var resp envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "default", data["channel"])
	assert.Equal(t, float64(3), data["removed"])
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Contains(t, errOut.String(), "shown 2")
	assert.Empty(t, out.String(), "diagnostics must not touch stdout")
}

func TestVerdictWord(t *testing.T) {
	assert.Equal(t, "ACCEPTED", verdictWord(true, false, false))
	assert.Equal(t, "REJECTED bad-counter", verdictWord(false, true, false))
	assert.Equal(t, "REJECTED bad-nonce", verdictWord(false, false, true))
	assert.Equal(t, "REJECTED bad-counter bad-nonce", verdictWord(false, true, true))
}

func TestWriteField_AlignsValues(t *testing.T) {
	var b strings.Builder
	writeField(&b, "counter", 100)
	writeField(&b, "nonce", hexNonce(0x12345678))
	assert.Equal(t, "\n  counter: 100\n  nonce:   0x12345678", b.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "outer: inner")
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")
}
