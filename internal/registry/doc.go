// Package registry implements the in-memory symbol registry and the snapshot
// hydrator.
//
// The registry maps a symbol to its live record: lifecycle mode, flags, and
// the latest microstructure snapshot. Records are created lazily on first
// reference and live for the process lifetime. The hydrator derives snapshot
// fields (spread, mid, imbalance, pressure) from each incoming quote.
package registry
