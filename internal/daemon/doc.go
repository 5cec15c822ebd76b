// Package daemon provides the orchestration for chimed.
// It turns incoming events into decisions by combining the current
// configuration, focus state, mute table and per-account sound governors,
// and records every decision in the journal and metrics.
package daemon
