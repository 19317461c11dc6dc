// Package buffer implements the per-symbol double ring buffers used by the
// ingestion path.
//
// Each buffer holds two fixed-capacity deques. Writers append to the active
// deque; Drain atomically swaps the pair and hands the previously-active
// contents to the caller. That keeps the consuming read (minute-bar building)
// to a pointer swap under the lock while writers keep appending to the other
// half.
//
// Quotes are memory-only by policy; trades are drained by downstream bar
// builders.
package buffer
