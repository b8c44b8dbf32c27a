package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON: object keys sorted
// by UTF-16 code units, NFC-normalized strings, no HTML escaping, and no
// floats. Only the shapes verdict entries and traces need are supported
// (objects, lists, strings, integers, booleans). Used for entry hashing
// and for golden trace files, where byte-stable output is required.
func MarshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case uint32:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case map[string]any:
		return marshalCanonicalObject(val)
	case []any:
		return marshalCanonicalList(val)
	default:
		return nil, fmt.Errorf("unsupported canonical type %T", v)
	}
}

func marshalCanonicalList(list []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalCanonical(item)
		if err != nil {
			return nil, fmt.Errorf("list index %d: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// RFC 8785 requires UTF-16 code unit ordering, not byte ordering.
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := MarshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at the serialization boundary.
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // <, > and & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline.
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	return result, nil
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// entryHash computes the chained hash of an entry: SHA-256 over the
// canonical JSON of the row content including the previous row's hash.
func entryHash(e Entry) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"channel":     e.Channel,
		"seq":         e.Seq,
		"handle":      e.Handle,
		"counter":     e.Counter,
		"nonce":       e.Nonce,
		"valid":       e.Valid,
		"bad_counter": e.BadCounter,
		"bad_nonce":   e.BadNonce,
		"recorded_at": e.RecordedAt,
		"prev_hash":   e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("canonicalize entry: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
