// Package model defines shared data types used across the reflex data core.
//
// Conventions:
//   - Prices and sizes: float64 / uint32 as delivered by the upstream feed
//   - Timestamps: int64 nanoseconds since Unix epoch unless suffixed otherwise
//   - Symbols: uppercase, validated once at the ingress boundary
package model
