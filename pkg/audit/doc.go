// Package audit records grant-lifecycle events: grants, revocations, and
// role changes. Checks themselves are not audited on the hot path; the
// administrative surface that mutates grants is where the trail matters.
//
// Recorder is the integration point. LogRecorder writes JSON lines through
// the engine logger; MemoryRecorder backs tests; NopRecorder disables
// auditing.
package audit
