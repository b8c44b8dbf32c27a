package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"seq":     int64(7),
		"channel": "uplink",
		"valid":   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"channel":"uplink","seq":7,"valid":true}`, string(b))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{"channel": "a<b&c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"channel":"a<b&c>d"}`, string(b))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	decomposed, err := MarshalCanonical(map[string]any{"channel": "café"})
	require.NoError(t, err)
	precomposed, err := MarshalCanonical(map[string]any{"channel": "café"})
	require.NoError(t, err)
	assert.Equal(t, string(precomposed), string(decomposed))
}

func TestMarshalCanonical_RejectsUnsupportedTypes(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"bad": 1.5})
	assert.Error(t, err)
}

func TestEntryHash_Deterministic(t *testing.T) {
	e := Entry{
		Channel: "uplink", Seq: 1, Handle: "req-0001",
		Counter: 100, Nonce: 0x12345678,
		Valid: true, RecordedAt: 1000, PrevHash: genesisHash,
	}

	h1, err := entryHash(e)
	require.NoError(t, err)
	h2, err := entryHash(e)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Any field change moves the hash.
	e.Valid = false
	h3, err := entryHash(e)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
