package model

import (
	"errors"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"aapl", "AAPL", false},
		{" msft ", "MSFT", false},
		{"BRK.A", "BRK.A", false},
		{"BF-B", "BF-B", false},
		{"", "", true},
		{"   ", "", true},
		{"TOOLONGSYMBOLNAME1", "", true},
		{"AA PL", "", true},
		{"aa$l", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeSymbol(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeSymbol(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSymbol(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, raw := range []string{"HOT", "hot", " Warm ", "COLD"} {
		if _, err := ParseState(raw); err != nil {
			t.Errorf("ParseState(%q) error: %v", raw, err)
		}
	}

	// WATCH is a registry mode, not an external state.
	for _, raw := range []string{"", "WATCH", "LUKEWARM"} {
		st, err := ParseState(raw)
		if err == nil {
			t.Errorf("ParseState(%q) = %q, want error", raw, st)
			continue
		}
		if raw != "" && !errors.Is(err, ErrInvalidState) {
			t.Errorf("ParseState(%q) error = %v, want ErrInvalidState", raw, err)
		}
	}
}

func TestQuoteValidate(t *testing.T) {
	valid := QuoteEvent{Symbol: "AAPL", Bid: 100.0, Ask: 100.10, BidSize: 50, AskSize: 150, TsNs: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid quote rejected: %v", err)
	}

	crossed := valid
	crossed.Bid, crossed.Ask = 100.10, 100.0
	if err := crossed.Validate(); !errors.Is(err, ErrInvalidQuote) {
		t.Errorf("crossed quote error = %v, want ErrInvalidQuote", err)
	}

	oneSided := valid
	oneSided.Ask = 0
	if err := oneSided.Validate(); err == nil {
		t.Error("one-sided quote accepted, want error")
	}

	// Locked market (ask == bid) is a valid NBBO.
	locked := valid
	locked.Ask = locked.Bid
	if err := locked.Validate(); err != nil {
		t.Errorf("locked quote rejected: %v", err)
	}
}

func TestTradeValidate(t *testing.T) {
	valid := TradeEvent{Symbol: "AAPL", Price: 123.45, Size: 100, TsNs: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid trade rejected: %v", err)
	}

	zeroPrice := valid
	zeroPrice.Price = 0
	if err := zeroPrice.Validate(); !errors.Is(err, ErrInvalidTrade) {
		t.Errorf("zero-price trade error = %v, want ErrInvalidTrade", err)
	}

	zeroSize := valid
	zeroSize.Size = 0
	if err := zeroSize.Validate(); err == nil {
		t.Error("zero-size trade accepted, want error")
	}
}

func TestChannelAndModeValid(t *testing.T) {
	for _, c := range []Channel{ChannelTrades, ChannelQuotes, ChannelAggregates} {
		if !c.Valid() {
			t.Errorf("Channel(%q).Valid() = false, want true", c)
		}
	}
	if Channel("X").Valid() {
		t.Error(`Channel("X").Valid() = true, want false`)
	}

	for _, m := range []Mode{ModeCold, ModeWatch, ModeWarm, ModeHot} {
		if !m.Valid() {
			t.Errorf("Mode(%q).Valid() = false, want true", m)
		}
	}
	if Mode("TEPID").Valid() {
		t.Error(`Mode("TEPID").Valid() = true, want false`)
	}
}
