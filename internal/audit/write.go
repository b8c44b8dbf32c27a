package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonlabs/replaygate/internal/engine"
)

// genesisHash anchors the chain for a channel's first entry.
const genesisHash = "genesis"

// Entry is one verdict row.
type Entry struct {
	Channel    string `json:"channel"`
	Seq        int64  `json:"seq"`
	Handle     string `json:"handle"`
	Counter    uint32 `json:"counter"`
	Nonce      uint32 `json:"nonce"`
	Valid      bool   `json:"valid"`
	BadCounter bool   `json:"bad_counter"`
	BadNonce   bool   `json:"bad_nonce"`
	RecordedAt int64  `json:"recorded_at"` // unix milliseconds
	PrevHash   string `json:"prev_hash"`
	Hash       string `json:"hash"`
}

// Record appends a verdict for a channel, chaining its hash to the
// previous entry. ON CONFLICT DO NOTHING makes re-recording the same
// (channel, seq) idempotent.
func (s *Store) Record(ctx context.Context, channel string, v engine.Verdict) (Entry, error) {
	return s.record(ctx, channel, v, time.Now().UnixMilli())
}

// RecordAt is Record with a caller-supplied timestamp, used by tests and
// the conformance harness for deterministic logs.
func (s *Store) RecordAt(ctx context.Context, channel string, v engine.Verdict, unixMilli int64) (Entry, error) {
	return s.record(ctx, channel, v, unixMilli)
}

func (s *Store) record(ctx context.Context, channel string, v engine.Verdict, unixMilli int64) (Entry, error) {
	prev, err := s.lastHash(ctx, channel)
	if err != nil {
		return Entry{}, fmt.Errorf("record verdict: %w", err)
	}

	e := Entry{
		Channel:    channel,
		Seq:        v.Seq,
		Handle:     string(v.Handle),
		Counter:    v.Counter,
		Nonce:      v.Nonce,
		Valid:      v.Valid,
		BadCounter: v.BadCounter,
		BadNonce:   v.BadNonce,
		RecordedAt: unixMilli,
		PrevHash:   prev,
	}

	e.Hash, err = entryHash(e)
	if err != nil {
		return Entry{}, fmt.Errorf("record verdict: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts
		(channel, seq, handle, counter, nonce, valid, bad_counter, bad_nonce, recorded_at, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, seq) DO NOTHING
	`,
		e.Channel,
		e.Seq,
		e.Handle,
		int64(e.Counter),
		int64(e.Nonce),
		e.Valid,
		e.BadCounter,
		e.BadNonce,
		e.RecordedAt,
		e.PrevHash,
		e.Hash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record verdict: %w", err)
	}

	return e, nil
}

// Purge deletes every entry of a channel, returning how many were
// removed. The next entry recorded on the channel re-anchors at genesis.
func (s *Store) Purge(ctx context.Context, channel string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM verdicts WHERE channel = ?`, channel)
	if err != nil {
		return 0, fmt.Errorf("purge channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge channel: %w", err)
	}
	return n, nil
}

// lastHash returns the newest entry's hash for a channel, or the genesis
// anchor when the channel has no entries yet.
func (s *Store) lastHash(ctx context.Context, channel string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT hash FROM verdicts
		WHERE channel = ?
		ORDER BY seq DESC
		LIMIT 1
	`, channel).Scan(&hash)
	if err != nil {
		if isNoRows(err) {
			return genesisHash, nil
		}
		return "", fmt.Errorf("last hash: %w", err)
	}
	return hash, nil
}
