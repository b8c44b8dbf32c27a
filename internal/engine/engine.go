package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handle identifies one outstanding validation request.
type Handle string

// HandleGenerator generates unique request handles.
// Implemented by UUIDv7Generator (production) and testutil.SequentialHandles
// (tests and the conformance harness).
type HandleGenerator interface {
	Generate() string
}

// State is the engine's request-lifecycle state.
type State int

const (
	// StateIdle means no request is outstanding.
	StateIdle State = iota
	// StateValidating means a request has been accepted and is being checked.
	StateValidating
	// StateReady means a verdict is computed and awaiting caller pickup.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateValidating:
		return "VALIDATING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// Verdict is the composite freshness result for one candidate.
//
// Valid is true iff both BadCounter and BadNonce are false. A rejection is
// a normal outcome, not an error: what happens to a rejected message is the
// caller's policy.
type Verdict struct {
	Handle     Handle `json:"handle"`
	Seq        int64  `json:"seq"`
	Counter    uint32 `json:"counter"`
	Nonce      uint32 `json:"nonce"`
	Valid      bool   `json:"valid"`
	BadCounter bool   `json:"bad_counter"`
	BadNonce   bool   `json:"bad_nonce"`
}

// request tracks one candidate through the lifecycle.
type request struct {
	handle  Handle
	counter uint32
	nonce   uint32
	verdict *Verdict
	ready   chan struct{} // closed once the verdict is computed
}

// Engine is the anti-replay validation engine for one protected channel.
//
// It exclusively owns one MonotonicCounter, one NonceGenerator, and one
// ReplayCache; none are shared across instances, and all mutation funnels
// through the documented operations so the invariants can be enforced.
//
// Validation is modeled accelerator-style: Submit accepts a candidate,
// a single worker (Run) computes the verdict, and the caller collects it
// with Poll and Acknowledge. At most one request is outstanding.
type Engine struct {
	mu        sync.Mutex
	counter   *MonotonicCounter
	nonces    *NonceGenerator
	cache     *ReplayCache
	clock     *Clock
	handleGen HandleGenerator

	state   State
	pending *request
	work    chan *request
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	seed         uint32
	counterStart uint32
	clockStart   int64
	capacity     int
	handleGen    HandleGenerator
}

// WithSeed sets the LFSR seed. Zero is rejected by New.
func WithSeed(seed uint32) Option {
	return func(o *options) { o.seed = seed }
}

// WithCacheCapacity sets the replay cache bound.
func WithCacheCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithCounterStart resumes the monotonic counter from a persisted value.
func WithCounterStart(v uint32) Option {
	return func(o *options) { o.counterStart = v }
}

// WithClockStart resumes the verdict clock from a persisted seq, so new
// verdicts extend an existing audit channel instead of colliding with it.
func WithClockStart(seq int64) Option {
	return func(o *options) { o.clockStart = seq }
}

// WithHandleGenerator replaces the UUIDv7 handle source.
// Tests use this for deterministic handles.
func WithHandleGenerator(g HandleGenerator) Option {
	return func(o *options) { o.handleGen = g }
}

// New creates an engine with an unlocked zero counter, a freshly seeded
// nonce generator, and an empty cache.
func New(opts ...Option) (*Engine, error) {
	o := &options{
		seed:      DefaultSeed,
		capacity:  DefaultCacheCapacity,
		handleGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}

	nonces, err := NewNonceGenerator(o.seed)
	if err != nil {
		return nil, err
	}

	return &Engine{
		counter:   NewMonotonicCounterAt(o.counterStart),
		nonces:    nonces,
		cache:     NewReplayCache(o.capacity),
		clock:     NewClockAt(o.clockStart),
		handleGen: o.handleGen,
		state:     StateIdle,
		work:      make(chan *request, 1),
	}, nil
}

// Run starts the single validation worker. Blocks until the context is
// cancelled. Must be called from exactly one goroutine; all verdict
// computation happens here so checks are never interleaved mid-request.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			return ctx.Err()

		case req := <-e.work:
			e.compute(req)
		}
	}
}

// compute evaluates a candidate against the owned state and publishes the
// verdict. Effects are NOT applied here; they are deferred to Acknowledge
// so a timed-out-then-abandoned request has no observable state effect.
func (e *Engine) compute(req *request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slog.Debug("validating candidate",
		"handle", req.handle,
		"counter", req.counter,
		"nonce", req.nonce,
	)

	// Exhaustion fails closed: at MaxUint32 no candidate can be strictly
	// greater, so the progression check rejects everything from here on.
	// A locked counter fails closed too - accepting would break the
	// guarantee that a valid verdict's commit always lands.
	badCounter := e.counter.IsLocked() || !(req.counter > e.counter.Current())
	badNonce := e.cache.Contains(req.nonce)

	req.verdict = &Verdict{
		Handle:     req.handle,
		Seq:        e.clock.Next(),
		Counter:    req.counter,
		Nonce:      req.nonce,
		Valid:      !badCounter && !badNonce,
		BadCounter: badCounter,
		BadNonce:   badNonce,
	}

	close(req.ready)

	// An abandoned or reset request is published nowhere: the verdict is
	// dropped and the lifecycle stays wherever the admin operation left it.
	if e.pending != req {
		slog.Debug("verdict dropped for retired request", "handle", req.handle)
		return
	}

	e.state = StateReady

	slog.Info("verdict ready",
		"handle", req.handle,
		"seq", req.verdict.Seq,
		"valid", req.verdict.Valid,
		"bad_counter", badCounter,
		"bad_nonce", badNonce,
	)
}

// Submit accepts a (counter, nonce) candidate for validation.
// Accepted only when the engine is IDLE; returns ErrEngineBusy otherwise.
// The candidate is queued even if the worker has not started yet - like a
// trigger written to a clock-gated accelerator, it is picked up as soon as
// Run is scheduled.
func (e *Engine) Submit(counter, nonce uint32) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return "", busyError(e.pending.handle)
	}

	req := &request{
		handle:  Handle(e.handleGen.Generate()),
		counter: counter,
		nonce:   nonce,
		ready:   make(chan struct{}),
	}

	e.state = StateValidating
	e.pending = req

	// The work channel (cap 1) is empty whenever the engine is IDLE: retire
	// drains any request the worker never picked up. The send cannot block.
	e.work <- req

	return req.handle, nil
}

// retire drops the pending request, draining it from the work queue if the
// worker has not picked it up yet. Caller holds e.mu.
func (e *Engine) retire() {
	select {
	case <-e.work:
	default:
	}
	e.state = StateIdle
	e.pending = nil
}

// Poll returns the verdict for h, or nil while the check is still running.
// Repeated polls after READY return the same verdict until Acknowledge.
// Poll has no side effects: status is a pure function of the latest
// completed validation.
func (e *Engine) Poll(h Handle) (*Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil || e.pending.handle != h {
		return nil, unknownHandleError(h)
	}
	if e.state == StateValidating {
		return nil, nil
	}

	v := *e.pending.verdict
	return &v, nil
}

// Acknowledge retires the request, transitioning READY back to IDLE, and
// commits the deferred effects: for a valid verdict the counter advances to
// the candidate and the nonce is recorded. The ordering guarantee holds -
// a rejected request leaves no trace that could itself be replayed to
// different effect.
func (e *Engine) Acknowledge(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil || e.pending.handle != h {
		return unknownHandleError(h)
	}
	if e.state == StateValidating {
		return ErrNotReady
	}

	v := e.pending.verdict
	if v.Valid {
		// TrySet cannot fail here: BadCounter was false at compute time and
		// nothing else mutates the counter while the request is outstanding.
		e.counter.TrySet(v.Counter)
		e.cache.Insert(v.Nonce)

		slog.Debug("candidate committed",
			"handle", h,
			"counter", v.Counter,
			"cache_len", e.cache.Len(),
		)
	}

	e.state = StateIdle
	e.pending = nil
	return nil
}

// Abandon drops an outstanding request without committing anything.
// Callers use this after a poll timeout; the abandoned candidate has no
// observable effect on the counter or the cache.
func (e *Engine) Abandon(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil || e.pending.handle != h {
		return unknownHandleError(h)
	}

	// For a request the worker already holds, retiring the pending pointer
	// is enough: compute refuses to publish a verdict for a request the
	// engine no longer tracks.
	e.retire()

	slog.Debug("request abandoned", "handle", h)
	return nil
}

// Await polls for the verdict with a bounded retry budget, sleeping
// interval between attempts. Exhausting the budget returns ErrPollBudget -
// "no answer", a distinct outcome from rejection.
func (e *Engine) Await(ctx context.Context, h Handle, budget int, interval time.Duration) (*Verdict, error) {
	for attempt := 0; attempt < budget; attempt++ {
		v, err := e.Poll(h)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return nil, &EngineError{Code: ErrCodePollBudget, Message: "no verdict within poll budget", Handle: h}
}

// IssueNonce produces a fresh outbound nonce. This is the outgoing data
// path, independent of inbound validation: attaching a nonce consults only
// the generator, never the counter or the cache.
func (e *Engine) IssueNonce() uint32 {
	return e.nonces.Next()
}

// Reseed replaces the nonce generator state. Zero seeds are rejected.
func (e *Engine) Reseed(seed uint32) error {
	return e.nonces.Reseed(seed)
}

// AdvanceCounter increments the monotonic counter by one and returns the
// new value. No-op when the counter is locked or saturated. Used by
// bootstrap sequencing, not by the inbound validation path, which only
// moves the counter through acknowledged verdicts.
func (e *Engine) AdvanceCounter() uint32 {
	return e.counter.Advance()
}

// LockCounter makes the monotonic counter immutable. Irreversible.
func (e *Engine) LockCounter() {
	e.counter.Lock()
}

// CounterValue returns the last-accepted counter value.
func (e *Engine) CounterValue() uint32 {
	return e.counter.Current()
}

// CounterLocked reports whether the counter has been locked.
func (e *Engine) CounterLocked() bool {
	return e.counter.IsLocked()
}

// Exhausted reports whether the channel is terminally out of counter
// values. Once true, every candidate is rejected and the channel must be
// rekeyed or reset by a higher-level policy.
func (e *Engine) Exhausted() bool {
	return e.counter.Exhausted()
}

// State returns the request-lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CacheLen returns the number of cached nonces.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// WarmCache preloads the replay cache, oldest first, so replay checks
// extend across sessions when nonce history is persisted elsewhere.
// Administrative: call before any candidate is submitted.
func (e *Engine) WarmCache(nonces []uint32) {
	for _, n := range nonces {
		e.cache.Insert(n)
	}
	slog.Debug("replay cache warmed", "nonces", len(nonces), "cached", e.cache.Len())
}

// ResetCache empties the replay cache. Administrative: intended for test
// and bootstrap use only, never called from the validation path.
func (e *Engine) ResetCache() {
	e.cache.Reset()
	slog.Info("replay cache reset")
}

// ResetState returns the counter and the nonce state to initial values and
// drops any outstanding request uncommitted. Administrative: a locked
// counter keeps its value. Never called from the validation path.
func (e *Engine) ResetState() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counter.reset()
	e.nonces.reset()
	e.retire()

	slog.Info("engine state reset")
}
