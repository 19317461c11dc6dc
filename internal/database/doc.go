// Package database provides the Postgres access layer: connection pooling,
// the persisted symbol-state store the bridge bootstraps from, and the
// listen/notify loop that streams state changes into it.
package database
