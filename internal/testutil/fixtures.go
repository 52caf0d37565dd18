// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"time"

	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
)

// KalshiBook builds a Kalshi book snapshot from [price_cents, contracts]
// level tuples.
func KalshiBook(ticker string, yes, no [][2]int) *kalshi.Book {
	return kalshi.NewBookFromSnapshot(ticker, yes, no, 1, time.Now())
}

// PolyBook builds a Polymarket book snapshot from [price, size] decimal
// string pairs.
func PolyBook(assetID string, bids, asks [][2]string) *polymarket.Book {
	return polymarket.NewBookFromLevels(assetID, bids, asks, time.Now())
}
