package httpserver

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
	"github.com/RohitDayanand/polykalshi-client/internal/kalshi"
	"github.com/RohitDayanand/polykalshi-client/internal/polymarket"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// apiHandler serves the REST control surface.
type apiHandler struct {
	kalshiStore     *kalshi.Store
	polymarketStore *polymarket.Store
	manager         *arbitrage.Manager
	registry        *arbitrage.Registry
	settings        *arbitrage.SettingsCoordinator
	logger          *zap.Logger
}

func newAPIHandler(cfg *Config) *apiHandler {
	return &apiHandler{
		kalshiStore:     cfg.KalshiStore,
		polymarketStore: cfg.PolymarketStore,
		manager:         cfg.Manager,
		registry:        cfg.Registry,
		settings:        cfg.Settings,
		logger:          cfg.Logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OrderbookResponse is the per-market view returned by /api/orderbook:
// the ticker summary plus full YES-side depth. Kalshi asks are the derived
// side (complement of NO bids).
type OrderbookResponse struct {
	MarketKey string              `json:"market_key"`
	Platform  types.Platform      `json:"platform"`
	Summary   types.TickerSummary `json:"summary"`
	Bids      []types.PriceLevel  `json:"bids"`
	Asks      []types.PriceLevel  `json:"asks"`
}

// handleOrderbook handles GET /api/orderbook?platform=<venue>&market_key=<key>.
func (h *apiHandler) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	marketKey := r.URL.Query().Get("market_key")
	if marketKey == "" {
		h.writeError(w, "missing required query parameter: market_key", http.StatusBadRequest)
		return
	}

	platform := types.Platform(r.URL.Query().Get("platform"))
	if !platform.Valid() {
		h.writeError(w, "platform must be 'kalshi' or 'polymarket'", http.StatusBadRequest)
		return
	}

	resp := OrderbookResponse{MarketKey: marketKey, Platform: platform}

	if platform == types.PlatformKalshi {
		summary, found := h.kalshiStore.Summary(marketKey)
		if !found {
			h.writeError(w, "market not tracked", http.StatusNotFound)
			return
		}
		resp.Summary = *summary
		if book, ok := h.kalshiStore.Book(marketKey); ok {
			resp.Bids, resp.Asks = kalshiDepth(book)
		}
	} else {
		summary, found := h.polymarketStore.Summary(marketKey)
		if !found {
			h.writeError(w, "market not tracked", http.StatusNotFound)
			return
		}
		resp.Summary = *summary
		if book, ok := h.polymarketStore.Book(marketKey); ok {
			resp.Bids, resp.Asks = polyDepth(book)
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// kalshiDepth renders YES bids and derived YES asks (100 − NO bid) as
// decimal levels, best first.
func kalshiDepth(book *kalshi.Book) (bids, asks []types.PriceLevel) {
	bids = make([]types.PriceLevel, 0, len(book.Yes))
	for cents, contracts := range book.Yes {
		bids = append(bids, types.PriceLevel{
			Price: strconv.FormatFloat(float64(cents)/100, 'f', 2, 64),
			Size:  strconv.Itoa(contracts),
		})
	}

	asks = make([]types.PriceLevel, 0, len(book.No))
	for cents, contracts := range book.No {
		asks = append(asks, types.PriceLevel{
			Price: strconv.FormatFloat(float64(100-cents)/100, 'f', 2, 64),
			Size:  strconv.Itoa(contracts),
		})
	}

	sortLevels(bids, true)
	sortLevels(asks, false)
	return bids, asks
}

// polyDepth renders the book's native string-keyed levels, best first.
func polyDepth(book *polymarket.Book) (bids, asks []types.PriceLevel) {
	bids = make([]types.PriceLevel, 0, len(book.Bids))
	for price, size := range book.Bids {
		bids = append(bids, types.PriceLevel{
			Price: price,
			Size:  strconv.FormatFloat(size, 'f', -1, 64),
		})
	}

	asks = make([]types.PriceLevel, 0, len(book.Asks))
	for price, size := range book.Asks {
		asks = append(asks, types.PriceLevel{
			Price: price,
			Size:  strconv.FormatFloat(size, 'f', -1, 64),
		})
	}

	sortLevels(bids, true)
	sortLevels(asks, false)
	return bids, asks
}

func sortLevels(levels []types.PriceLevel, descending bool) {
	sort.Slice(levels, func(i, j int) bool {
		a, _ := strconv.ParseFloat(levels[i].Price, 64)
		b, _ := strconv.ParseFloat(levels[j].Price, 64)
		if descending {
			return a > b
		}
		return a < b
	})
}

// handleListPairs handles GET /api/pairs.
func (h *apiHandler) handleListPairs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"pairs": h.registry.Pairs()})
}

// handleAddPair handles POST /api/pairs. A missing pair_id is assigned.
func (h *apiHandler) handleAddPair(w http.ResponseWriter, r *http.Request) {
	var pair types.MarketPair
	if err := json.NewDecoder(r.Body).Decode(&pair); err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if pair.PairID == "" {
		pair.PairID = uuid.New().String()
	}

	if err := h.manager.AddPair(r.Context(), &pair); err != nil {
		h.writeControlError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, &pair)
}

// handleRemovePair handles DELETE /api/pairs/{pairID}.
func (h *apiHandler) handleRemovePair(w http.ResponseWriter, r *http.Request) {
	pairID := chi.URLParam(r, "pairID")

	if err := h.manager.RemovePair(r.Context(), pairID); err != nil {
		h.writeControlError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSubscribeMarket handles POST /api/markets/subscribe.
func (h *apiHandler) handleSubscribeMarket(w http.ResponseWriter, r *http.Request) {
	var req types.SubscribeMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.manager.SubscribeMarket(r.Context(), &req); err != nil {
		h.writeControlError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":            "subscribed",
		"market_identifier": req.MarketID,
		"platform":          string(req.Platform),
	})
}

// SettingsResponse is returned on a successful settings change.
type SettingsResponse struct {
	Settings      arbitrage.Settings `json:"settings"`
	ChangedFields []string           `json:"changed_fields"`
}

// handleSettings handles POST /api/arbitrage/settings with a partial patch.
func (h *apiHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	var patch arbitrage.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	applied, changed, err := h.settings.Request(r.Context(), patch, 25*time.Second)
	if err != nil {
		// Replies travel the bus as strings, so typed errors are gone by
		// here; rejections carry a fixed prefix.
		if strings.Contains(err.Error(), "timed out") {
			h.writeError(w, err.Error(), http.StatusGatewayTimeout)
		} else {
			h.writeError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, SettingsResponse{Settings: applied, ChangedFields: changed})
}

// handleGetSettings handles GET /api/arbitrage/settings.
func (h *apiHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"settings": h.manager.Current()})
}

// writeControlError maps domain errors onto HTTP status codes.
func (h *apiHandler) writeControlError(w http.ResponseWriter, err error) {
	var validationErr *types.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var coordErr *types.CoordinationError
	if errors.As(err, &coordErr) {
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}

	h.writeError(w, err.Error(), http.StatusInternalServerError)
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *apiHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
