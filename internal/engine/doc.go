// Package engine implements the replaygate anti-replay validation engine.
//
// The engine decides whether an inbound (counter, nonce) candidate is fresh,
// replayed, or out-of-order. It owns three collaborators:
//   - MonotonicCounter: last-accepted sequence value, non-decreasing, lockable
//   - NonceGenerator: maximal-length LFSR producing non-repeating outbound nonces
//   - ReplayCache: bounded FIFO set of recently accepted nonces
//
// ARCHITECTURE:
//
// Single-Worker Validation Loop:
// At most one validation request is in flight per engine instance. Requests
// move through an explicit three-state lifecycle:
//
//	IDLE -> VALIDATING -> READY -> IDLE
//
// Submit accepts a candidate only from IDLE. A single worker goroutine
// (Run) computes the verdict and transitions to READY. Poll reads the
// verdict without side effects; Acknowledge returns the engine to IDLE.
//
// Deferred Commit:
// State effects of an accepted candidate (counter advance, nonce recorded)
// are applied at Acknowledge, not at verdict computation. A request that is
// submitted but abandoned - including one whose caller gave up polling -
// leaves no observable trace in the counter or the cache.
//
// Thread-safety model:
//   - Submit/Poll/Acknowledge/IssueNonce: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - All collaborator mutation funnels through the engine mutex
//
// INVARIANTS:
//   - Counter value never decreases; immutable once locked
//   - Cache holds at most its capacity; eviction is FIFO
//   - Verdict is a pure function of engine state at compute time plus the
//     request; repeated Poll returns the identical verdict until Acknowledge
//   - A rejected or abandoned request mutates nothing
package engine
