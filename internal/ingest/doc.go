// Package ingest runs the per-channel ingestion processes.
//
// A Process owns one upstream feed subscription role (trades or quotes). Raw
// events land on a bounded work queue; workers parse them into canonical
// events and publish the normalized form on the bus. A control listener
// applies subscribe/unsubscribe/replace commands addressed to the process's
// channel, and a health record goes out on a fixed cadence.
//
// Backpressure is freshness-preserving: a full queue evicts its oldest item
// before dropping the newest, so slow downstreams lose history, not the
// present.
package ingest
