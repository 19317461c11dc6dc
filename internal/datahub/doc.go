// Package datahub consumes the normalized bus streams into process-local
// state: trades and quotes land in per-symbol ring buffers, and each quote
// refreshes the symbol's registry snapshot. Downstream consumers read the
// buffers and registry directly.
package datahub
