// Package health publishes periodic liveness records.
//
// Each process builds a snapshot struct on a fixed cadence and writes it,
// JSON-encoded, to a well-known key in the shared store. Records overwrite;
// consumers judge staleness by the embedded timestamp.
package health
