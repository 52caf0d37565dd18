package kalshi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// TickerState is the cumulative per-market ticker view maintained from
// ticker_v2 deltas, seeded by a best-effort REST bootstrap.
type TickerState struct {
	Ticker    string
	Price     int
	YesBid    int
	YesAsk    int
	Volume    int64
	UpdatedAt time.Time
}

// Store holds the current book snapshot per market ticker. Writes are
// exclusively owned by the decoder; any number of readers read the current
// snapshot through an atomic pointer without locking. The outer map is
// guarded only for membership changes.
type Store struct {
	mu      sync.RWMutex
	books   map[string]*atomic.Pointer[Book]
	tickers map[string]*TickerState
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:   make(map[string]*atomic.Pointer[Book]),
		tickers: make(map[string]*TickerState),
	}
}

// Ensure creates an empty entry for a ticker if none exists. Called when a
// subscription is confirmed before the first snapshot arrives.
func (s *Store) Ensure(ticker string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[ticker]; !ok {
		s.books[ticker] = &atomic.Pointer[Book]{}
	}
}

// Book returns the current snapshot for a ticker. Second return is false
// when the ticker is unknown or no snapshot has arrived yet.
func (s *Store) Book(ticker string) (*Book, bool) {
	s.mu.RLock()
	ptr, ok := s.books[ticker]
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

// setBook publishes a new snapshot with an atomic pointer swap. Decoder
// write path only.
func (s *Store) setBook(ticker string, book *Book) {
	s.mu.Lock()
	ptr, ok := s.books[ticker]
	if !ok {
		ptr = &atomic.Pointer[Book]{}
		s.books[ticker] = ptr
	}
	s.mu.Unlock()

	ptr.Store(book)
	BooksTracked.Set(float64(s.count()))
}

// Remove drops all state for a ticker. Called when pair removal has
// committed across all components.
func (s *Store) Remove(ticker string) {
	s.mu.Lock()
	delete(s.books, ticker)
	delete(s.tickers, ticker)
	s.mu.Unlock()

	BooksTracked.Set(float64(s.count()))
}

func (s *Store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// tickerState returns a copy of the cumulative ticker state.
func (s *Store) tickerState(ticker string) (TickerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.tickers[ticker]
	if !ok {
		return TickerState{}, false
	}
	return *st, true
}

// setTickerState stores the cumulative ticker state. Decoder write path only.
func (s *Store) setTickerState(st TickerState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := st
	s.tickers[st.Ticker] = &copied
}

// Platform identifies the venue for ticker publication.
func (s *Store) Platform() types.Platform { return types.PlatformKalshi }

// MarketKeys lists every tracked ticker.
func (s *Store) MarketKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.books))
	for ticker := range s.books {
		keys = append(keys, ticker)
	}
	return keys
}

// Summary builds the canonical YES/NO quote view for a ticker from the
// current atomic snapshot. Prices are converted to decimals here, at the
// calculation boundary. A derived ask that crosses its own side's bid
// (possible on crossed venue books) is omitted rather than emitted.
func (s *Store) Summary(ticker string) (*types.TickerSummary, bool) {
	book, ok := s.Book(ticker)
	if !ok {
		return nil, false
	}

	var volume float64
	if st, ok := s.tickerState(ticker); ok {
		volume = float64(st.Volume)
	}

	summary := &types.TickerSummary{
		Yes: types.SideQuote{Volume: volume},
		No:  types.SideQuote{Volume: volume},
	}

	if book.BestYesBid > 0 {
		summary.Yes.Bid = types.Float(float64(book.BestYesBid) / 100)
	}
	if book.BestNoBid > 0 {
		summary.No.Bid = types.Float(float64(book.BestNoBid) / 100)
	}

	if ask, ok := book.BestYesAsk(); ok {
		if book.BestYesBid == 0 || ask >= book.BestYesBid {
			summary.Yes.Ask = types.Float(float64(ask) / 100)
		}
	}
	if ask, ok := book.BestNoAsk(); ok {
		if book.BestNoBid == 0 || ask >= book.BestNoBid {
			summary.No.Ask = types.Float(float64(ask) / 100)
		}
	}

	return summary, true
}
