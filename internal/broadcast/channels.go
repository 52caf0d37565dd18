package broadcast

import (
	"sync"

	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// SubscriptionKind discriminates subscription variants.
type SubscriptionKind string

const (
	SubAll      SubscriptionKind = "all"
	SubPlatform SubscriptionKind = "platform"
	SubMarket   SubscriptionKind = "market"
	SubCustom   SubscriptionKind = "custom"
)

// PriceRange bounds a CUSTOM subscription's acceptable yes-bid.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Subscription is one client filter. CUSTOM predicates reference volume and
// price range over the ticker summary; they are evaluated linearly, outside
// the index caches.
type Subscription struct {
	Kind       SubscriptionKind
	Platform   types.Platform
	MarketKey  string
	MinVolume  float64
	PriceRange *PriceRange
}

// matches evaluates a CUSTOM predicate against a snapshot.
func (s Subscription) matches(snap *types.TickerSnapshot) bool {
	if s.MinVolume > 0 && snap.Summary.Yes.Volume < s.MinVolume {
		return false
	}
	if s.PriceRange != nil {
		bid := snap.Summary.Yes.Bid
		if bid == nil || *bid < s.PriceRange.Min || *bid > s.PriceRange.Max {
			return false
		}
	}
	return true
}

// ChannelManager tracks per-client subscription sets and keeps three derived
// index caches: all-clients, platform → clients, market → clients. Caches
// are invalidated on every membership change and rebuilt serially on the
// next lookup.
type ChannelManager struct {
	mu   sync.Mutex
	subs map[string][]Subscription

	dirty      bool
	allClients map[string]struct{}
	byPlatform map[types.Platform]map[string]struct{}
	byMarket   map[string]map[string]struct{}
	custom     map[string][]Subscription
}

// NewChannelManager creates an empty manager.
func NewChannelManager() *ChannelManager {
	return &ChannelManager{
		subs:       make(map[string][]Subscription),
		allClients: make(map[string]struct{}),
		byPlatform: make(map[types.Platform]map[string]struct{}),
		byMarket:   make(map[string]map[string]struct{}),
		custom:     make(map[string][]Subscription),
	}
}

// Subscribe adds a subscription for a client.
func (m *ChannelManager) Subscribe(clientID string, sub Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[clientID] = append(m.subs[clientID], sub)
	m.dirty = true
}

// UnsubscribeMarket removes a client's MARKET subscriptions for one key.
func (m *ChannelManager) UnsubscribeMarket(clientID, marketKey string) {
	m.removeIf(clientID, func(s Subscription) bool {
		return s.Kind == SubMarket && s.MarketKey == marketKey
	})
}

// UnsubscribePlatform removes a client's PLATFORM subscriptions for one
// platform.
func (m *ChannelManager) UnsubscribePlatform(clientID string, platform types.Platform) {
	m.removeIf(clientID, func(s Subscription) bool {
		return s.Kind == SubPlatform && s.Platform == platform
	})
}

func (m *ChannelManager) removeIf(clientID string, drop func(Subscription) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.subs[clientID]
	kept := existing[:0]
	for _, s := range existing {
		if !drop(s) {
			kept = append(kept, s)
		}
	}

	if len(kept) == 0 {
		delete(m.subs, clientID)
	} else {
		m.subs[clientID] = kept
	}
	m.dirty = true
}

// RemoveClient drops every subscription for a client.
func (m *ChannelManager) RemoveClient(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subs, clientID)
	m.dirty = true
}

// DropMarket removes every client's MARKET subscriptions for a key. Used
// when a pair is removed.
func (m *ChannelManager) DropMarket(marketKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for clientID, subs := range m.subs {
		kept := subs[:0]
		for _, s := range subs {
			if !(s.Kind == SubMarket && s.MarketKey == marketKey) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(m.subs, clientID)
		} else {
			m.subs[clientID] = kept
		}
	}
	m.dirty = true
}

// Subscriptions returns a copy of one client's subscriptions.
func (m *ChannelManager) Subscriptions(clientID string) []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Subscription, len(m.subs[clientID]))
	copy(out, m.subs[clientID])
	return out
}

// Recipients computes the client set for one ticker snapshot: the indexed
// union of ALL, PLATFORM, and MARKET matches, plus the linear CUSTOM scan.
func (m *ChannelManager) Recipients(snap *types.TickerSnapshot) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuildLocked()

	set := make(map[string]struct{})
	for id := range m.allClients {
		set[id] = struct{}{}
	}
	for id := range m.byPlatform[snap.Platform] {
		set[id] = struct{}{}
	}
	for id := range m.byMarket[snap.MarketKey] {
		set[id] = struct{}{}
	}
	for id, subs := range m.custom {
		for _, s := range subs {
			if s.matches(snap) {
				set[id] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// RecipientsForMarkets computes the client set for an event addressed to a
// set of market keys across both platforms (arbitrage alerts).
func (m *ChannelManager) RecipientsForMarkets(marketKeys ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuildLocked()

	set := make(map[string]struct{})
	for id := range m.allClients {
		set[id] = struct{}{}
	}
	for _, platform := range []types.Platform{types.PlatformKalshi, types.PlatformPolymarket} {
		for id := range m.byPlatform[platform] {
			set[id] = struct{}{}
		}
	}
	for _, key := range marketKeys {
		for id := range m.byMarket[key] {
			set[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// rebuildLocked regenerates the index caches when dirty. Callers hold mu.
func (m *ChannelManager) rebuildLocked() {
	if !m.dirty {
		return
	}

	m.allClients = make(map[string]struct{})
	m.byPlatform = make(map[types.Platform]map[string]struct{})
	m.byMarket = make(map[string]map[string]struct{})
	m.custom = make(map[string][]Subscription)

	for clientID, subs := range m.subs {
		for _, s := range subs {
			switch s.Kind {
			case SubAll:
				m.allClients[clientID] = struct{}{}
			case SubPlatform:
				if m.byPlatform[s.Platform] == nil {
					m.byPlatform[s.Platform] = make(map[string]struct{})
				}
				m.byPlatform[s.Platform][clientID] = struct{}{}
			case SubMarket:
				if m.byMarket[s.MarketKey] == nil {
					m.byMarket[s.MarketKey] = make(map[string]struct{})
				}
				m.byMarket[s.MarketKey][clientID] = struct{}{}
			case SubCustom:
				m.custom[clientID] = append(m.custom[clientID], s)
			}
		}
	}

	m.dirty = false
	IndexRebuildsTotal.Inc()
}
