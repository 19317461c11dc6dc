// Package feed implements the WebSocket client for the upstream market-data
// feed.
//
// The client owns exactly one socket. It authenticates on every connect,
// keeps per-channel subscription sets, and survives disconnects with
// exponential backoff; after re-authentication all held subscriptions are
// re-emitted so reconnects are transparent to higher layers. Outbound frames
// flow through a bounded send queue drained by a dedicated sender goroutine.
package feed
