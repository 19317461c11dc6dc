package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/reflex-trading/reflex-data/internal/model"
)

// stateUpdate is one symbol/state assertion.
type stateUpdate struct {
	Symbol string `json:"symbol"`
	State  string `json:"state"`
}

// statePayload accepts both the single and the batch form.
type statePayload struct {
	stateUpdate
	Batch []stateUpdate `json:"batch"`
}

func (p statePayload) updates() []stateUpdate {
	if len(p.Batch) > 0 {
		return p.Batch
	}
	if p.Symbol != "" {
		return []stateUpdate{p.stateUpdate}
	}
	return nil
}

// sourceHandler returns the bus handler for one pub/sub source. Invalid
// symbols or states are rejected and counted; valid entries in a batch are
// applied even when siblings are rejected.
func (b *Bridge) sourceHandler(src Source) func(payload []byte) {
	return func(payload []byte) {
		var p statePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			b.invalidIn.Add(1)
			b.logger.Warn("malformed state payload", "source", src, "error", err)
			return
		}
		for _, u := range p.updates() {
			b.applyUpdate(src, u)
		}
	}
}

func (b *Bridge) applyUpdate(src Source, u stateUpdate) {
	sym, err := model.NormalizeSymbol(u.Symbol)
	if err != nil {
		b.invalidIn.Add(1)
		b.logger.Warn("state update rejected", "source", src, "symbol", u.Symbol, "error", err)
		return
	}
	st, err := model.ParseState(u.State)
	if err != nil {
		b.invalidIn.Add(1)
		b.logger.Warn("state update rejected", "source", src, "symbol", sym, "error", err)
		return
	}
	b.Apply(src, sym, st)
}

// HandleDBNotify processes one listen/notify payload from the database.
// The payload is either the usual JSON single/batch form or a bare symbol,
// which triggers a point lookup against the store.
func (b *Bridge) HandleDBNotify(ctx context.Context, payload []byte) {
	b.dbNotifyIn.Add(1)

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var p statePayload
		if err := json.Unmarshal(trimmed, &p); err == nil {
			for _, u := range p.updates() {
				b.applyUpdate(SourceDB, u)
			}
			return
		}
	}

	// Bare symbol: re-read its persisted state.
	sym, err := model.NormalizeSymbol(strings.Trim(string(trimmed), `"`))
	if err != nil {
		b.invalidIn.Add(1)
		b.logger.Warn("unusable notify payload", "payload", string(payload))
		return
	}
	if b.db == nil {
		return
	}

	st, ok, err := b.db.LookupState(ctx, sym)
	if err != nil {
		b.logger.Warn("point lookup failed", "symbol", sym, "error", err)
		return
	}

	b.mu.Lock()
	if ok {
		b.sources[SourceDB][sym] = st
	} else {
		delete(b.sources[SourceDB], sym)
	}
	b.mu.Unlock()

	b.updatesIn.Add(1)
	b.signalDirty()
}
