package kalshi

import (
	"fmt"
	"time"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// Book is an immutable snapshot of one Kalshi market's orderbook. YES and NO
// are disjoint auction books of resting bids; asks are derived from the
// opposite side (YES ask = 100 − best NO bid). Prices are integer cents
// 1..99 and map to resting contract counts. Mutation always produces a new
// Book via copy-on-write; readers never observe a partial write.
type Book struct {
	Ticker     string
	Yes        map[int]int
	No         map[int]int
	BestYesBid int // 0 when the YES book is empty
	BestNoBid  int // 0 when the NO book is empty
	LastSeq    int64
	UpdatedAt  time.Time
}

// NewBookFromSnapshot builds a book from a full venue snapshot, replacing
// any prior state. Levels with non-positive size are discarded.
func NewBookFromSnapshot(ticker string, yes, no [][2]int, seq int64, now time.Time) *Book {
	yesLevels := make(map[int]int, len(yes))
	for _, lv := range yes {
		if lv[1] > 0 {
			yesLevels[lv[0]] = lv[1]
		}
	}

	noLevels := make(map[int]int, len(no))
	for _, lv := range no {
		if lv[1] > 0 {
			noLevels[lv[0]] = lv[1]
		}
	}

	return &Book{
		Ticker:     ticker,
		Yes:        yesLevels,
		No:         noLevels,
		BestYesBid: bestBid(yesLevels),
		BestNoBid:  bestBid(noLevels),
		LastSeq:    seq,
		UpdatedAt:  now,
	}
}

// ApplyDelta returns a new book with the signed delta applied to the
// addressed (side, price) level. The sequence invariant seq == LastSeq+1 is
// enforced; a gap returns a SequenceGapError and the delta must be dropped.
// A level reaching size <= 0 is removed, never retained.
func (b *Book) ApplyDelta(side string, price, delta int, seq int64, now time.Time) (*Book, error) {
	if seq != b.LastSeq+1 {
		return nil, &types.SequenceGapError{
			Ticker:   b.Ticker,
			Expected: b.LastSeq + 1,
			Got:      seq,
		}
	}

	var levels map[int]int
	switch side {
	case "yes":
		levels = b.Yes
	case "no":
		levels = b.No
	default:
		return nil, fmt.Errorf("unknown side %q on %s", side, b.Ticker)
	}

	next := make(map[int]int, len(levels)+1)
	for p, sz := range levels {
		next[p] = sz
	}

	size := next[price] + delta
	if size <= 0 {
		delete(next, price)
	} else {
		next[price] = size
	}

	out := &Book{
		Ticker:     b.Ticker,
		Yes:        b.Yes,
		No:         b.No,
		BestYesBid: b.BestYesBid,
		BestNoBid:  b.BestNoBid,
		LastSeq:    seq,
		UpdatedAt:  now,
	}

	if side == "yes" {
		out.Yes = next
		out.BestYesBid = bestBid(next)
	} else {
		out.No = next
		out.BestNoBid = bestBid(next)
	}

	return out, nil
}

// BestYesAsk derives the YES ask from the NO book. Second return is false
// when the NO book is empty.
func (b *Book) BestYesAsk() (int, bool) {
	if b.BestNoBid == 0 {
		return 0, false
	}
	return 100 - b.BestNoBid, true
}

// BestNoAsk derives the NO ask from the YES book.
func (b *Book) BestNoAsk() (int, bool) {
	if b.BestYesBid == 0 {
		return 0, false
	}
	return 100 - b.BestYesBid, true
}

// SizeAtYes returns resting contracts at a YES price.
func (b *Book) SizeAtYes(price int) int { return b.Yes[price] }

// SizeAtNo returns resting contracts at a NO price.
func (b *Book) SizeAtNo(price int) int { return b.No[price] }

func bestBid(levels map[int]int) int {
	best := 0
	for price := range levels {
		if price > best {
			best = price
		}
	}
	return best
}
