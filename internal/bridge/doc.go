// Package bridge merges desired symbol states from several producers into
// the upstream subscription sets and pushes the result to the ingestion
// processes over the control bus.
//
// Four sources feed the bridge: persisted DB state, the evaluator, manual
// overrides, and transient chart viewers. A fixed priority order resolves
// conflicts (override beats evaluator beats chart beats db); chart entries
// decay on a per-symbol TTL. Pushes are debounced and diffed against the
// last published sets, so a quiet bridge is silent.
package bridge
