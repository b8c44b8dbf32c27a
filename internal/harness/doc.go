// Package harness runs conformance scenarios against the validation
// engine.
//
// A scenario is a YAML file scripting candidate submissions, outbound
// nonce draws, and administrative operations, with expected verdicts
// inline and final-state assertions at the end. Scenarios mirror the
// register-level suite that ships with the hardware: counter increment,
// decrement rejection, lock immutability, nonce uniqueness, accept-valid,
// reject-replay, reject-old-counter, and valid progression.
//
// Every run uses a fresh engine, deterministic sequential handles, and an
// in-memory verdict log, so the produced trace is byte-identical across
// runs and can be pinned with golden files.
package harness
