package registry

import (
	"github.com/reflex-trading/reflex-data/internal/model"
)

// sizeEpsilon guards the imbalance denominator against a zero-size book.
const sizeEpsilon = 1e-12

// Derive computes the snapshot fields for a single quote. Pure function:
// no registry state is consulted.
func Derive(q model.QuoteEvent) model.Snapshot {
	bid := q.Bid
	ask := q.Ask
	bidSz := float64(q.BidSize)
	askSz := float64(q.AskSize)

	spread := ask - bid
	if spread < 0 {
		spread = 0
	}

	mid := bid
	if spread > 0 {
		mid = (ask + bid) / 2
	}

	imbalance := 0.0
	if tot := bidSz + askSz; tot > sizeEpsilon {
		imbalance = (bidSz - askSz) / tot
	}

	// Same formula as imbalance for now; reserved for alternate weighting.
	pressure := imbalance

	return model.Snapshot{
		Spread:         spread,
		Mid:            mid,
		BidSz:          bidSz,
		AskSz:          askSz,
		Imbalance:      imbalance,
		Pressure:       pressure,
		LastUpdateTsNs: q.TsNs,
	}
}

// Hydrate updates the symbol's registry snapshot from an incoming quote and
// aligns last price with the new mid. Invalid quotes (missing side, crossed
// book) are ignored.
func Hydrate(r *Registry, q model.QuoteEvent) bool {
	if q.Validate() != nil {
		return false
	}
	snap := Derive(q)
	r.UpdateSnapshot(q.Symbol, snap, snap.Mid)
	return true
}
