package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/reflex-trading/reflex-data/internal/model"
)

// flexID accepts the upstream trade id as either a JSON string or a bare
// number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)
	return nil
}

// Raw upstream event shapes, field names per the feed protocol.

type rawTrade struct {
	Sym  string   `json:"sym"`
	P    float64  `json:"p"`
	S    uint32   `json:"s"`
	T    int64    `json:"t"`
	X    uint16   `json:"x"`
	I    flexID   `json:"i"`
	Cond []uint16 `json:"c"`
}

type rawQuote struct {
	Sym  string   `json:"sym"`
	BP   float64  `json:"bp"`
	AP   float64  `json:"ap"`
	BS   uint32   `json:"bs"`
	AS   uint32   `json:"as"`
	T    int64    `json:"t"`
	X    uint16   `json:"x"`
	Cond []uint16 `json:"c"`
}

// parseTrade converts a raw upstream trade into the canonical event,
// rejecting anything that fails required-field checks.
func parseTrade(raw json.RawMessage) (model.TradeEvent, error) {
	var r rawTrade
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.TradeEvent{}, fmt.Errorf("parse trade: %w", err)
	}
	sym, err := model.NormalizeSymbol(r.Sym)
	if err != nil {
		return model.TradeEvent{}, err
	}
	t := model.TradeEvent{
		Symbol:     sym,
		Price:      r.P,
		Size:       r.S,
		TsNs:       r.T,
		Exchange:   r.X,
		TradeID:    string(r.I),
		Conditions: r.Cond,
	}
	if err := t.Validate(); err != nil {
		return model.TradeEvent{}, err
	}
	return t, nil
}

// parseQuote converts a raw upstream quote into the canonical event.
// One-sided and crossed quotes are rejected.
func parseQuote(raw json.RawMessage) (model.QuoteEvent, error) {
	var r rawQuote
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.QuoteEvent{}, fmt.Errorf("parse quote: %w", err)
	}
	sym, err := model.NormalizeSymbol(r.Sym)
	if err != nil {
		return model.QuoteEvent{}, err
	}
	q := model.QuoteEvent{
		Symbol:     sym,
		Bid:        r.BP,
		Ask:        r.AP,
		BidSize:    r.BS,
		AskSize:    r.AS,
		TsNs:       r.T,
		Exchange:   r.X,
		Conditions: r.Cond,
	}
	if err := q.Validate(); err != nil {
		return model.QuoteEvent{}, err
	}
	return q, nil
}
