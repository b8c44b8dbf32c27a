// Package audit provides the durable verdict log for replaygate channels.
//
// Every acknowledged verdict is appended to a SQLite database, one row per
// candidate, ordered by the engine's logical clock. Rows are chained: each
// carries a SHA-256 over its canonical JSON plus the previous row's hash,
// so truncation or tampering anywhere in the log breaks the chain.
//
// The log is a telemetry sink, not an enforcement mechanism - the engine
// never reads it back on the validation path.
package audit
