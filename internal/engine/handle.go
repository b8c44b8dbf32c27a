package engine

import "github.com/google/uuid"

// UUIDv7Generator generates time-sortable UUIDv7 request handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, making handles
// sortable by submission time, which keeps audit logs readable.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
