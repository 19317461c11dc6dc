// Package bus provides the message transport used between the reflex
// processes.
//
// Two implementations back the same interfaces: Memory, an in-process
// publish/subscribe bus with bounded recent-history (used inside a single
// daemon and by tests), and Redis, which carries the same topics across
// processes over Redis pub/sub. Health records go through the Store
// interface with overwrite semantics.
package bus
