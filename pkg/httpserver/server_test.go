package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/internal/ingest"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/cache"
	"github.com/RohitDayanand/polykalshi-client/pkg/healthprobe"
)

type serverFixture struct {
	server  *httptest.Server
	kalshi  *kalshi.Decoder
	checker *healthprobe.HealthChecker
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	logger := zap.NewNop()
	b := bus.New(logger)

	coordinator := coordination.New(coordination.Config{
		Bus:            b,
		PrepareTimeout: 2 * time.Second,
		Logger:         logger,
	})

	kStore := kalshi.NewStore()
	pStore := polymarket.NewStore()

	settings := arbitrage.NewSettingsState(arbitrage.Settings{
		MinSpreadThreshold: 0.02,
		MinTradeSize:       10,
	})

	registry := arbitrage.NewRegistry(arbitrage.RegistryConfig{
		Bus:      b,
		Kalshi:   kStore,
		Poly:     pStore,
		Settings: settings,
		Logger:   logger,
	})
	coordinator.Register(registry, "add_pair", "remove_pair", "subscribe_market")

	dedup, err := cache.NewRistretto()
	require.NoError(t, err)
	t.Cleanup(dedup.Close)

	manager, err := arbitrage.NewManager(arbitrage.ManagerConfig{
		Bus:              b,
		Coordinator:      coordinator,
		Registry:         registry,
		Settings:         settings,
		Cache:            dedup,
		Logger:           logger,
		PairParticipants: []string{registry.ComponentID()},
	})
	require.NoError(t, err)
	coordinator.Register(manager, "settings_change")

	settingsCoordinator := arbitrage.NewSettingsCoordinator(b, manager, logger)

	checker := healthprobe.New()
	checker.SetReady(true)

	srv := New(&Config{
		Port:            "0",
		Logger:          logger,
		HealthChecker:   checker,
		KalshiStore:     kStore,
		PolymarketStore: pStore,
		Manager:         manager,
		Registry:        registry,
		Settings:        settingsCoordinator,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	decoder := kalshi.NewDecoder(kalshi.DecoderConfig{
		Store:  kStore,
		Bus:    b,
		Logger: logger,
	})

	return &serverFixture{server: ts, kalshi: decoder, checker: checker}
}

func (f *serverFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (f *serverFixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	resp := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	f.checker.SetReady(false)
	resp = f.get(t, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}

func TestPairLifecycle(t *testing.T) {
	f := newServerFixture(t)

	resp := f.post(t, "/api/pairs", `{"pair_id":"pair-1","kalshi_ticker":"KXWIN-TEST","poly_yes_asset":"asset-yes","poly_no_asset":"asset-no"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/pairs")
	body := decodeBody(t, resp)
	require.Len(t, body["pairs"], 1)

	// Same Kalshi ticker under a new id is rejected during prepare.
	resp = f.post(t, "/api/pairs", `{"pair_id":"pair-2","kalshi_ticker":"KXWIN-TEST","poly_yes_asset":"y2","poly_no_asset":"n2"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/api/pairs/pair-1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodDelete, f.server.URL+"/api/pairs/pair-1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAddPairAssignsID(t *testing.T) {
	f := newServerFixture(t)

	resp := f.post(t, "/api/pairs", `{"kalshi_ticker":"KXBTC-TEST","poly_yes_asset":"y","poly_no_asset":"n"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["pair_id"])
}

func TestSubscribeMarket(t *testing.T) {
	f := newServerFixture(t)

	resp := f.post(t, "/api/markets/subscribe", `{"platform":"kalshi","market_identifier":"KXUSD-TEST"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/api/markets/subscribe", `{"platform":"nyse","market_identifier":"AAPL"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSettingsEndpoint(t *testing.T) {
	f := newServerFixture(t)

	resp := f.get(t, "/api/arbitrage/settings")
	body := decodeBody(t, resp)
	settings := body["settings"].(map[string]any)
	assert.InDelta(t, 0.02, settings["min_spread_threshold"], 1e-9)

	resp = f.post(t, "/api/arbitrage/settings", `{"min_spread_threshold":0.05}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Contains(t, body["changed_fields"], "min_spread_threshold")

	// Out-of-range threshold is rejected and the current value survives.
	resp = f.post(t, "/api/arbitrage/settings", `{"min_spread_threshold":1.5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/arbitrage/settings")
	body = decodeBody(t, resp)
	settings = body["settings"].(map[string]any)
	assert.InDelta(t, 0.05, settings["min_spread_threshold"], 1e-9)
}

func TestOrderbookEndpoint(t *testing.T) {
	f := newServerFixture(t)

	resp := f.get(t, "/api/orderbook")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/orderbook?platform=kalshi&market_key=KXUSD-TEST")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	f.kalshi.Handle(ingest.Frame{
		Data:     []byte(`{"type":"orderbook_snapshot","seq":1,"msg":{"market_ticker":"KXUSD-TEST","yes":[[40,10]],"no":[[55,20]]}}`),
		Received: time.Now(),
	})

	resp = f.get(t, "/api/orderbook?platform=kalshi&market_key=KXUSD-TEST")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	summary := body["summary"].(map[string]any)
	yes := summary["yes"].(map[string]any)
	assert.InDelta(t, 0.40, yes["bid"], 1e-9)

	bids := body["bids"].([]any)
	require.Len(t, bids, 1)
	assert.Equal(t, "0.40", bids[0].(map[string]any)["price"])

	// Derived ask: complement of the NO bid at 55.
	asks := body["asks"].([]any)
	require.Len(t, asks, 1)
	assert.Equal(t, "0.45", asks[0].(map[string]any)["price"])
}
