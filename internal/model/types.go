package model

import (
	"errors"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Symbols
// -----------------------------------------------------------------------------

// MaxSymbolLen is the longest accepted symbol identifier.
const MaxSymbolLen = 16

var (
	ErrEmptySymbol   = errors.New("empty symbol")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidQuote  = errors.New("invalid quote")
	ErrInvalidTrade  = errors.New("invalid trade")
)

// NormalizeSymbol trims and upper-cases a raw symbol and validates it:
// 1..16 bytes, characters from [A-Z0-9.-]. Symbols are the partition key
// everywhere, so normalization happens once at the ingress boundary.
func NormalizeSymbol(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", ErrEmptySymbol
	}
	if len(s) > MaxSymbolLen {
		return "", fmt.Errorf("%w: %q too long", ErrInvalidSymbol, s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
		}
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Channels
// -----------------------------------------------------------------------------

// Channel identifies an upstream stream category.
type Channel string

const (
	ChannelTrades     Channel = "T"
	ChannelQuotes     Channel = "Q"
	ChannelAggregates Channel = "A"
)

// Valid reports whether the channel is one of the known tags.
func (c Channel) Valid() bool {
	switch c {
	case ChannelTrades, ChannelQuotes, ChannelAggregates:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Symbol states and registry modes
// -----------------------------------------------------------------------------

// State is a desired symbol state asserted by a bridge source.
type State string

const (
	StateCold State = "COLD"
	StateWarm State = "WARM"
	StateHot  State = "HOT"
)

// ParseState validates a raw state string from an external payload.
func ParseState(raw string) (State, error) {
	switch s := State(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StateCold, StateWarm, StateHot:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
}

// Mode is the registry-side lifecycle mode of a symbol. It is a superset of
// State: WATCH marks symbols under passive observation.
type Mode string

const (
	ModeCold  Mode = "COLD"
	ModeWatch Mode = "WATCH"
	ModeWarm  Mode = "WARM"
	ModeHot   Mode = "HOT"
)

// Valid reports whether the mode is one of the enumerated values.
func (m Mode) Valid() bool {
	switch m {
	case ModeCold, ModeWatch, ModeWarm, ModeHot:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// TradeEvent is a normalized trade print. Immutable after construction.
type TradeEvent struct {
	Symbol     string   // Normalized symbol
	Price      float64  // Trade price, > 0
	Size       uint32   // Shares, >= 1
	TsNs       int64    // Event timestamp (ns since epoch)
	Exchange   uint16   // Exchange id (0 if unknown)
	TradeID    string   // Upstream trade id ("" if absent)
	Conditions []uint16 // Condition codes (nil if absent)
}

// Validate checks the required-field constraints.
func (t TradeEvent) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidTrade)
	}
	if t.Price <= 0 {
		return fmt.Errorf("%w: price %v", ErrInvalidTrade, t.Price)
	}
	if t.Size < 1 {
		return fmt.Errorf("%w: size %d", ErrInvalidTrade, t.Size)
	}
	return nil
}

// QuoteEvent is a normalized NBBO quote.
type QuoteEvent struct {
	Symbol     string
	Bid        float64
	Ask        float64
	BidSize    uint32
	AskSize    uint32
	TsNs       int64
	Exchange   uint16
	Conditions []uint16
}

// Validate rejects quotes without both sides or with a crossed book
// (ask < bid is not a valid NBBO).
func (q QuoteEvent) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidQuote)
	}
	if q.Bid <= 0 || q.Ask <= 0 {
		return fmt.Errorf("%w: missing side bid=%v ask=%v", ErrInvalidQuote, q.Bid, q.Ask)
	}
	if q.Ask < q.Bid {
		return fmt.Errorf("%w: crossed bid=%v ask=%v", ErrInvalidQuote, q.Bid, q.Ask)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

// Snapshot holds the per-symbol microstructure fields derived from the
// latest quote. The zero value is the state of a never-quoted symbol.
type Snapshot struct {
	Spread         float64 `json:"spread"`
	Mid            float64 `json:"mid"`
	BidSz          float64 `json:"bid_sz"`
	AskSz          float64 `json:"ask_sz"`
	Imbalance      float64 `json:"imbalance"`
	Pressure       float64 `json:"pressure"`
	LastUpdateTsNs int64   `json:"last_update_ts_ns"`
}
