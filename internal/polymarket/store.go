package polymarket

import (
	"sync"
	"sync/atomic"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// Store holds the current book snapshot per asset id. Same discipline as
// the Kalshi store: single writer (the decoder), lock-free readers through
// atomic pointers, outer map guarded for membership only.
type Store struct {
	mu      sync.RWMutex
	books   map[string]*atomic.Pointer[Book]
	volumes map[string]float64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:   make(map[string]*atomic.Pointer[Book]),
		volumes: make(map[string]float64),
	}
}

// Ensure creates an empty entry for an asset if none exists.
func (s *Store) Ensure(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[assetID]; !ok {
		s.books[assetID] = &atomic.Pointer[Book]{}
	}
}

// Book returns the current snapshot for an asset. Second return is false
// when the asset is unknown or no snapshot has arrived yet.
func (s *Store) Book(assetID string) (*Book, bool) {
	s.mu.RLock()
	ptr, ok := s.books[assetID]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	book := ptr.Load()
	if book == nil {
		return nil, false
	}

	return book, true
}

// Tracked reports whether an asset has a store entry, with or without a
// snapshot. The venue offers no per-asset unsubscribe, so the decoder uses
// this to discard frames that keep arriving after a removal committed.
func (s *Store) Tracked(assetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.books[assetID]
	return ok
}

// setBook publishes a new snapshot with an atomic pointer swap. Decoder
// write path only.
func (s *Store) setBook(assetID string, book *Book) {
	s.mu.Lock()
	ptr, ok := s.books[assetID]
	if !ok {
		ptr = &atomic.Pointer[Book]{}
		s.books[assetID] = ptr
	}
	s.mu.Unlock()

	ptr.Store(book)
	BooksTracked.Set(float64(s.count()))
}

// Remove drops all state for an asset.
func (s *Store) Remove(assetID string) {
	s.mu.Lock()
	delete(s.books, assetID)
	delete(s.volumes, assetID)
	s.mu.Unlock()

	BooksTracked.Set(float64(s.count()))
}

func (s *Store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// addVolume accumulates traded size from last_trade_price frames.
func (s *Store) addVolume(assetID string, size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes[assetID] += size
}

func (s *Store) volume(assetID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volumes[assetID]
}

// Platform identifies the venue for ticker publication.
func (s *Store) Platform() types.Platform { return types.PlatformPolymarket }

// MarketKeys lists every tracked asset id.
func (s *Store) MarketKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.books))
	for assetID := range s.books {
		keys = append(keys, assetID)
	}
	return keys
}

// Summary builds the YES/NO quote view for an asset. The asset's own book
// quotes the YES side directly; the NO side is the binary complement
// (no bid = 1 − yes ask, no ask = 1 − yes bid).
func (s *Store) Summary(assetID string) (*types.TickerSummary, bool) {
	book, ok := s.Book(assetID)
	if !ok {
		return nil, false
	}

	volume := s.volume(assetID)
	summary := &types.TickerSummary{
		Yes: types.SideQuote{Volume: volume},
		No:  types.SideQuote{Volume: volume},
	}

	if bid, ok := book.BestBidFloat(); ok {
		summary.Yes.Bid = types.Float(bid)
		summary.No.Ask = types.Float(1 - bid)
	}
	if ask, ok := book.BestAskFloat(); ok {
		summary.Yes.Ask = types.Float(ask)
		summary.No.Bid = types.Float(1 - ask)
	}

	return summary, true
}
