package polymarket

import (
	"strconv"
	"time"
)

// Book is an immutable snapshot of one Polymarket asset's orderbook. Price
// keys stay decimal strings end to end; floats appear only at comparison and
// calculation boundaries. Best prices are "" when the side is empty.
// Mutation always produces a new Book via copy-on-write.
type Book struct {
	AssetID        string
	Bids           map[string]float64
	Asks           map[string]float64
	BestBid        string
	BestAsk        string
	LastHash       string
	TickSize       string
	LastTradePrice string
	UpdatedAt      time.Time
}

// NewBookFromSnapshot atomically replaces all book state for an asset.
// Levels with non-positive size are discarded.
func NewBookFromSnapshot(assetID string, bids, asks []wireLevel, hash string, now time.Time) *Book {
	b := &Book{
		AssetID:   assetID,
		Bids:      make(map[string]float64, len(bids)),
		Asks:      make(map[string]float64, len(asks)),
		LastHash:  hash,
		UpdatedAt: now,
	}

	for _, lv := range bids {
		if size, err := strconv.ParseFloat(lv.Size, 64); err == nil && size > 0 {
			b.Bids[lv.Price] = size
		}
	}
	for _, lv := range asks {
		if size, err := strconv.ParseFloat(lv.Size, 64); err == nil && size > 0 {
			b.Asks[lv.Price] = size
		}
	}

	b.BestBid = maxPrice(b.Bids)
	b.BestAsk = minPrice(b.Asks)

	return b
}

// NewBookFromLevels builds a book from (price, size) string pairs. Used by
// callers outside the decode path that need a book without wire frames.
func NewBookFromLevels(assetID string, bids, asks [][2]string, now time.Time) *Book {
	toWire := func(pairs [][2]string) []wireLevel {
		levels := make([]wireLevel, len(pairs))
		for i, p := range pairs {
			levels[i] = wireLevel{Price: p[0], Size: p[1]}
		}
		return levels
	}
	return NewBookFromSnapshot(assetID, toWire(bids), toWire(asks), "", now)
}

// ApplyChanges returns a new book with the patch list applied. A size of
// exactly "0" removes the level; any other size overwrites it.
func (b *Book) ApplyChanges(changes []priceChange, hash string, now time.Time) *Book {
	bids := b.Bids
	asks := b.Asks
	bidsCopied, asksCopied := false, false

	for _, ch := range changes {
		var levels map[string]float64
		switch ch.Side {
		case sideBuy:
			if !bidsCopied {
				bids = copyLevels(bids)
				bidsCopied = true
			}
			levels = bids
		case sideSell:
			if !asksCopied {
				asks = copyLevels(asks)
				asksCopied = true
			}
			levels = asks
		default:
			continue
		}

		size, err := strconv.ParseFloat(ch.Size, 64)
		if err != nil {
			continue
		}

		if size <= 0 {
			delete(levels, ch.Price)
		} else {
			levels[ch.Price] = size
		}
	}

	out := *b
	out.Bids = bids
	out.Asks = asks
	out.BestBid = maxPrice(bids)
	out.BestAsk = minPrice(asks)
	if hash != "" {
		out.LastHash = hash
	}
	out.UpdatedAt = now

	return &out
}

// ApplyTickSizeChange records the new tick size and seeds placeholder
// size-1 levels at the new tick on both sides; subsequent price_change
// frames replace them with real depth.
func (b *Book) ApplyTickSizeChange(newTick string, now time.Time) *Book {
	out := *b
	out.TickSize = newTick
	out.UpdatedAt = now

	if _, err := strconv.ParseFloat(newTick, 64); err != nil {
		return &out
	}

	out.Bids = copyLevels(b.Bids)
	out.Asks = copyLevels(b.Asks)
	if _, ok := out.Bids[newTick]; !ok {
		out.Bids[newTick] = 1
	}
	if _, ok := out.Asks[newTick]; !ok {
		out.Asks[newTick] = 1
	}
	out.BestBid = maxPrice(out.Bids)
	out.BestAsk = minPrice(out.Asks)

	return &out
}

// ApplyLastTrade records the last traded price without touching the book.
func (b *Book) ApplyLastTrade(price string, now time.Time) *Book {
	out := *b
	out.LastTradePrice = price
	out.UpdatedAt = now
	return &out
}

// BestBidFloat parses the best bid. Second return is false when the bid
// side is empty or unparsable.
func (b *Book) BestBidFloat() (float64, bool) { return parsePrice(b.BestBid) }

// BestAskFloat parses the best ask.
func (b *Book) BestAskFloat() (float64, bool) { return parsePrice(b.BestAsk) }

// SizeAt returns resting size at a price on the given side.
func (b *Book) SizeAt(side, price string) float64 {
	if side == sideBuy {
		return b.Bids[price]
	}
	return b.Asks[price]
}

func parsePrice(price string) (float64, bool) {
	if price == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func copyLevels(levels map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(levels)+1)
	for price, size := range levels {
		out[price] = size
	}
	return out
}

// maxPrice returns the numerically greatest price key, comparing as floats
// while keeping the original string form.
func maxPrice(levels map[string]float64) string {
	best := ""
	bestVal := -1.0
	for price := range levels {
		v, err := strconv.ParseFloat(price, 64)
		if err != nil {
			continue
		}
		if v > bestVal {
			best, bestVal = price, v
		}
	}
	return best
}

func minPrice(levels map[string]float64) string {
	best := ""
	bestVal := 2.0
	for price := range levels {
		v, err := strconv.ParseFloat(price, 64)
		if err != nil {
			continue
		}
		if v < bestVal {
			best, bestVal = price, v
		}
	}
	return best
}
