package registry

import (
	"strings"
	"sync"

	"github.com/reflex-trading/reflex-data/internal/model"
)

// Record is the live state of a single symbol.
type Record struct {
	Symbol    string
	Mode      model.Mode
	Flags     map[string]any
	Snapshot  model.Snapshot
	LastPrice float64 // 0 until first quote
}

// Registry is a thread-safe map from symbol to Record. Records, once
// created, are never removed.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// GetOrCreate returns a copy of the symbol's record, creating it with
// mode COLD and a zero snapshot if it does not exist. Keys are upper-cased.
func (r *Registry) GetOrCreate(symbol string) Record {
	s := strings.ToUpper(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.ensureLocked(s)
	return snapshotRecord(rec)
}

// Get returns a copy of the record if it exists.
func (r *Registry) Get(symbol string) (Record, bool) {
	s := strings.ToUpper(symbol)

	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[s]
	if !ok {
		return Record{}, false
	}
	return snapshotRecord(rec), true
}

// SetMode updates a symbol's mode, creating the record if needed.
// Invalid modes are ignored.
func (r *Registry) SetMode(symbol string, mode model.Mode) {
	if !mode.Valid() {
		return
	}
	s := strings.ToUpper(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(s).Mode = mode
}

// Mode returns a symbol's current mode, creating the record if needed.
func (r *Registry) Mode(symbol string) model.Mode {
	s := strings.ToUpper(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(s).Mode
}

// Modes returns a snapshot copy of all symbol modes.
func (r *Registry) Modes() map[string]model.Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Mode, len(r.records))
	for s, rec := range r.records {
		out[s] = rec.Mode
	}
	return out
}

// SetFlag sets an arbitrary bookkeeping flag on a symbol's record.
func (r *Registry) SetFlag(symbol, key string, value any) {
	s := strings.ToUpper(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(s).Flags[key] = value
}

// UpdateSnapshot replaces a symbol's snapshot and last price.
func (r *Registry) UpdateSnapshot(symbol string, snap model.Snapshot, lastPrice float64) {
	s := strings.ToUpper(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.ensureLocked(s)
	rec.Snapshot = snap
	rec.LastPrice = lastPrice
}

// Len returns the number of known symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) ensureLocked(symbol string) *Record {
	rec, ok := r.records[symbol]
	if !ok {
		rec = &Record{
			Symbol: symbol,
			Mode:   model.ModeCold,
			Flags:  make(map[string]any),
		}
		r.records[symbol] = rec
	}
	return rec
}

// snapshotRecord copies a record so callers never hold a reference into the
// registry's internals.
func snapshotRecord(rec *Record) Record {
	out := *rec
	out.Flags = make(map[string]any, len(rec.Flags))
	for k, v := range rec.Flags {
		out.Flags[k] = v
	}
	return out
}
