package polymarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookFromSnapshot(t *testing.T) {
	book := NewBookFromSnapshot("asset-a",
		[]wireLevel{{Price: "0.64", Size: "100"}, {Price: "0.60", Size: "50"}},
		[]wireLevel{{Price: "0.66", Size: "100"}, {Price: "0.70", Size: "25"}},
		"abc123", time.Now())

	assert.Equal(t, "0.64", book.BestBid)
	assert.Equal(t, "0.66", book.BestAsk)
	assert.Equal(t, "abc123", book.LastHash)
	assert.Equal(t, float64(50), book.SizeAt(sideBuy, "0.60"))
}

func TestSnapshotDiscardsZeroSizes(t *testing.T) {
	book := NewBookFromSnapshot("asset-a",
		[]wireLevel{{Price: "0.64", Size: "0"}},
		nil, "", time.Now())

	assert.Empty(t, book.Bids)
	assert.Equal(t, "", book.BestBid)
}

func TestApplyChangesRemovesLevel(t *testing.T) {
	// Snapshot then a size-0 patch on the only bid: bids empty, best null.
	book := NewBookFromSnapshot("A",
		[]wireLevel{{Price: "0.64", Size: "100"}},
		[]wireLevel{{Price: "0.66", Size: "100"}},
		"", time.Now())

	next := book.ApplyChanges([]priceChange{
		{Price: "0.64", Side: sideBuy, Size: "0"},
	}, "", time.Now())

	assert.Empty(t, next.Bids)
	assert.Equal(t, "", next.BestBid)
	assert.Equal(t, "0.66", next.BestAsk)

	// The prior snapshot is untouched.
	assert.Equal(t, "0.64", book.BestBid)
	assert.Equal(t, float64(100), book.SizeAt(sideBuy, "0.64"))
}

func TestApplyChangesOverwritesLevel(t *testing.T) {
	book := NewBookFromSnapshot("A",
		[]wireLevel{{Price: "0.64", Size: "100"}},
		nil, "h1", time.Now())

	next := book.ApplyChanges([]priceChange{
		{Price: "0.64", Side: sideBuy, Size: "250"},
		{Price: "0.65", Side: sideBuy, Size: "10"},
		{Price: "0.70", Side: sideSell, Size: "40"},
	}, "h2", time.Now())

	assert.Equal(t, float64(250), next.SizeAt(sideBuy, "0.64"))
	assert.Equal(t, "0.65", next.BestBid)
	assert.Equal(t, "0.70", next.BestAsk)
	assert.Equal(t, "h2", next.LastHash)
}

func TestApplyChangesIgnoresUnknownSide(t *testing.T) {
	book := NewBookFromSnapshot("A", []wireLevel{{Price: "0.64", Size: "100"}}, nil, "", time.Now())

	next := book.ApplyChanges([]priceChange{
		{Price: "0.64", Side: "HOLD", Size: "0"},
	}, "", time.Now())

	assert.Equal(t, float64(100), next.SizeAt(sideBuy, "0.64"))
}

func TestApplyTickSizeChange(t *testing.T) {
	book := NewBookFromSnapshot("A",
		[]wireLevel{{Price: "0.64", Size: "100"}},
		[]wireLevel{{Price: "0.66", Size: "100"}},
		"", time.Now())

	next := book.ApplyTickSizeChange("0.001", time.Now())

	assert.Equal(t, "0.001", next.TickSize)
	assert.Equal(t, float64(1), next.SizeAt(sideBuy, "0.001"))
	assert.Equal(t, float64(1), next.SizeAt(sideSell, "0.001"))
	assert.Equal(t, "0.64", next.BestBid, "placeholder below existing bids")
	assert.Equal(t, "0.001", next.BestAsk, "placeholder becomes lowest ask")

	// A later patch replaces the placeholder.
	patched := next.ApplyChanges([]priceChange{
		{Price: "0.001", Side: sideSell, Size: "0"},
	}, "", time.Now())
	assert.Equal(t, "0.66", patched.BestAsk)
}

func TestApplyLastTrade(t *testing.T) {
	book := NewBookFromSnapshot("A", nil, nil, "", time.Now())
	next := book.ApplyLastTrade("0.65", time.Now())

	assert.Equal(t, "0.65", next.LastTradePrice)
	assert.Equal(t, "", book.LastTradePrice)
}

func TestBestFloats(t *testing.T) {
	book := NewBookFromSnapshot("A",
		[]wireLevel{{Price: "0.64", Size: "100"}},
		nil, "", time.Now())

	bid, ok := book.BestBidFloat()
	require.True(t, ok)
	assert.InDelta(t, 0.64, bid, 1e-9)

	_, ok = book.BestAskFloat()
	assert.False(t, ok)
}

func TestStringKeysNeverCollapse(t *testing.T) {
	// "0.5" and "0.50" are distinct keys; lookups use the venue's exact
	// string form, never a float round-trip.
	book := NewBookFromSnapshot("A",
		[]wireLevel{{Price: "0.5", Size: "10"}, {Price: "0.50", Size: "20"}},
		nil, "", time.Now())

	assert.Equal(t, float64(10), book.SizeAt(sideBuy, "0.5"))
	assert.Equal(t, float64(20), book.SizeAt(sideBuy, "0.50"))
	assert.Len(t, book.Bids, 2)
}
