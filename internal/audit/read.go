package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// List returns a channel's entries in seq order. A non-positive limit
// returns everything. Returns an empty slice, not nil, when the channel
// has no entries.
func (s *Store) List(ctx context.Context, channel string, limit int) ([]Entry, error) {
	query := `
		SELECT channel, seq, handle, counter, nonce, valid, bad_counter, bad_nonce, recorded_at, prev_hash, hash
		FROM verdicts
		WHERE channel = ?
		ORDER BY seq ASC
	`
	args := []any{channel}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var counter, nonce int64
		err := rows.Scan(
			&e.Channel, &e.Seq, &e.Handle, &counter, &nonce,
			&e.Valid, &e.BadCounter, &e.BadNonce,
			&e.RecordedAt, &e.PrevHash, &e.Hash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		e.Counter = uint32(counter)
		e.Nonce = uint32(nonce)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}

	return entries, nil
}

// LastSeq returns the highest recorded seq for a channel, or 0 when the
// channel is empty. Used to resume a verdict clock across sessions.
func (s *Store) LastSeq(ctx context.Context, channel string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM verdicts WHERE channel = ?
	`, channel).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// LastAcceptedCounter returns the counter of a channel's most recent
// accepted verdict. The second return is false when the channel has no
// accepted verdicts yet.
func (s *Store) LastAcceptedCounter(ctx context.Context, channel string) (uint32, bool, error) {
	var counter uint32
	err := s.db.QueryRowContext(ctx, `
		SELECT counter FROM verdicts
		WHERE channel = ? AND valid = 1
		ORDER BY seq DESC LIMIT 1
	`, channel).Scan(&counter)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("last accepted counter: %w", err)
	}
	return counter, true, nil
}

// AcceptedNonces returns the nonces of a channel's accepted verdicts in
// seq order. A positive limit keeps only the most recent entries, still
// returned oldest first so cache insertion preserves eviction order.
func (s *Store) AcceptedNonces(ctx context.Context, channel string, limit int) ([]uint32, error) {
	query := `
		SELECT nonce FROM verdicts
		WHERE channel = ? AND valid = 1
		ORDER BY seq ASC
	`
	args := []any{channel}
	if limit > 0 {
		query = `
			SELECT nonce FROM (
				SELECT nonce, seq FROM verdicts
				WHERE channel = ? AND valid = 1
				ORDER BY seq DESC LIMIT ?
			) ORDER BY seq ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("accepted nonces: %w", err)
	}
	defer rows.Close()

	nonces := []uint32{}
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("accepted nonces: %w", err)
		}
		nonces = append(nonces, n)
	}
	return nonces, rows.Err()
}

// Count returns how many entries a channel holds.
func (s *Store) Count(ctx context.Context, channel string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verdicts WHERE channel = ?
	`, channel).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// CountRejected returns how many of a channel's entries were rejections.
func (s *Store) CountRejected(ctx context.Context, channel string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verdicts
		WHERE channel = ? AND valid = 0
	`, channel).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rejected: %w", err)
	}
	return n, nil
}

// Verify walks a channel's chain and reports the first break, if any.
// A valid chain starts at the genesis anchor and every entry's stored
// hash recomputes from its content plus the previous hash.
func (s *Store) Verify(ctx context.Context, channel string) error {
	entries, err := s.List(ctx, channel, 0)
	if err != nil {
		return err
	}

	prev := genesisHash
	for i, e := range entries {
		if e.PrevHash != prev {
			return fmt.Errorf("verdict chain broken at seq %d: prev_hash %q, expected %q", e.Seq, e.PrevHash, prev)
		}

		want, err := entryHash(e)
		if err != nil {
			return err
		}
		if e.Hash != want {
			return fmt.Errorf("verdict chain broken at seq %d: entry %d hash mismatch", e.Seq, i)
		}
		prev = e.Hash
	}

	return nil
}
