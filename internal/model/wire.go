package model

import (
	"encoding/json"
	"fmt"
)

// Normalized bus message shapes. Ingestion encodes, consumers decode; the
// field names are the contract shared with non-Go consumers of the bus.

type wireTrade struct {
	Type       string   `json:"type"`
	Symbol     string   `json:"symbol"`
	Price      float64  `json:"price"`
	Size       uint32   `json:"size"`
	Ts         int64    `json:"ts"`
	Exchange   uint16   `json:"ex,omitempty"`
	TradeID    string   `json:"id,omitempty"`
	Conditions []uint16 `json:"cond,omitempty"`
}

type wireQuote struct {
	Type       string   `json:"type"`
	Symbol     string   `json:"symbol"`
	Bid        float64  `json:"bid"`
	Ask        float64  `json:"ask"`
	BidSize    uint32   `json:"bsize"`
	AskSize    uint32   `json:"asize"`
	Ts         int64    `json:"ts"`
	Exchange   uint16   `json:"ex,omitempty"`
	Conditions []uint16 `json:"cond,omitempty"`
}

// EncodeTrade marshals a trade into its normalized bus form.
func EncodeTrade(t TradeEvent) ([]byte, error) {
	return json.Marshal(wireTrade{
		Type:       "trade",
		Symbol:     t.Symbol,
		Price:      t.Price,
		Size:       t.Size,
		Ts:         t.TsNs,
		Exchange:   t.Exchange,
		TradeID:    t.TradeID,
		Conditions: t.Conditions,
	})
}

// DecodeTrade parses and validates a normalized trade message.
func DecodeTrade(raw []byte) (TradeEvent, error) {
	var w wireTrade
	if err := json.Unmarshal(raw, &w); err != nil {
		return TradeEvent{}, fmt.Errorf("decode trade: %w", err)
	}
	if w.Type != "trade" {
		return TradeEvent{}, fmt.Errorf("%w: message type %q", ErrInvalidTrade, w.Type)
	}
	sym, err := NormalizeSymbol(w.Symbol)
	if err != nil {
		return TradeEvent{}, err
	}
	t := TradeEvent{
		Symbol:     sym,
		Price:      w.Price,
		Size:       w.Size,
		TsNs:       w.Ts,
		Exchange:   w.Exchange,
		TradeID:    w.TradeID,
		Conditions: w.Conditions,
	}
	if err := t.Validate(); err != nil {
		return TradeEvent{}, err
	}
	return t, nil
}

// EncodeQuote marshals a quote into its normalized bus form.
func EncodeQuote(q QuoteEvent) ([]byte, error) {
	return json.Marshal(wireQuote{
		Type:       "quote",
		Symbol:     q.Symbol,
		Bid:        q.Bid,
		Ask:        q.Ask,
		BidSize:    q.BidSize,
		AskSize:    q.AskSize,
		Ts:         q.TsNs,
		Exchange:   q.Exchange,
		Conditions: q.Conditions,
	})
}

// DecodeQuote parses and validates a normalized quote message.
func DecodeQuote(raw []byte) (QuoteEvent, error) {
	var w wireQuote
	if err := json.Unmarshal(raw, &w); err != nil {
		return QuoteEvent{}, fmt.Errorf("decode quote: %w", err)
	}
	if w.Type != "quote" {
		return QuoteEvent{}, fmt.Errorf("%w: message type %q", ErrInvalidQuote, w.Type)
	}
	sym, err := NormalizeSymbol(w.Symbol)
	if err != nil {
		return QuoteEvent{}, err
	}
	q := QuoteEvent{
		Symbol:     sym,
		Bid:        w.Bid,
		Ask:        w.Ask,
		BidSize:    w.BidSize,
		AskSize:    w.AskSize,
		TsNs:       w.Ts,
		Exchange:   w.Exchange,
		Conditions: w.Conditions,
	}
	if err := q.Validate(); err != nil {
		return QuoteEvent{}, err
	}
	return q, nil
}
