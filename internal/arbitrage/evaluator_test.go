package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RohitDayanand/polykalshi-client/internal/testutil"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

func testPair() *types.MarketPair {
	return &types.MarketPair{
		PairID:       "pair-1",
		KalshiTicker: "KXWIN-TEST",
		PolyYesAsset: "asset-yes",
		PolyNoAsset:  "asset-no",
	}
}

func TestEvaluateDetectsSellKYesBuyPNo(t *testing.T) {
	pair := testPair()

	// Raw K yes bid 57c loses a 2c fee -> effective 0.55. With P NO ask at
	// 0.40 the spread is 1 - (0.55 + 0.40) = 0.05. The other three
	// strategies stay under the threshold.
	kBook := testutil.KalshiBook("KXWIN-TEST", [][2]int{{57, 150}}, [][2]int{{40, 80}})
	pYes := testutil.PolyBook("asset-yes", [][2]string{{"0.55", "100"}}, [][2]string{{"0.61", "100"}})
	pNo := testutil.PolyBook("asset-no", [][2]string{{"0.38", "100"}}, [][2]string{{"0.40", "120"}})

	opps := Evaluate(pair, kBook, pYes, pNo, Settings{MinSpreadThreshold: 0.02, MinTradeSize: 10}, time.Now())

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.InDelta(t, 0.05, opp.Spread, 1e-9)
	assert.Equal(t, DirectionKToP, opp.Direction)
	assert.Equal(t, SideYes, opp.Side)
	assert.InDelta(t, 0.55, opp.KalshiPrice, 1e-9)
	assert.InDelta(t, 0.40, opp.PolyPrice, 1e-9)
	assert.Equal(t, "KXWIN-TEST", opp.KalshiTicker)
	assert.Equal(t, "asset-yes", opp.PolyAssetID)

	// Executable size is the smaller leg; P binds at 120 vs K's 150.
	assert.InDelta(t, 120, opp.ExecutionSize, 1e-9)
	assert.Equal(t, "polymarket", opp.Execution.LimitingVenue)
	assert.InDelta(t, 150, opp.Execution.KalshiSize, 1e-9)
}

func TestEvaluateMissingQuoteReturnsEmpty(t *testing.T) {
	pair := testPair()
	kBook := testutil.KalshiBook("KXWIN-TEST", [][2]int{{57, 150}}, [][2]int{{40, 80}})
	pYes := testutil.PolyBook("asset-yes", [][2]string{{"0.55", "100"}}, nil) // no asks
	pNo := testutil.PolyBook("asset-no", [][2]string{{"0.38", "100"}}, [][2]string{{"0.40", "120"}})

	assert.Empty(t, Evaluate(pair, kBook, pYes, pNo, Settings{}, time.Now()))
	assert.Empty(t, Evaluate(pair, nil, pYes, pNo, Settings{}, time.Now()))

	oneSided := testutil.KalshiBook("KXWIN-TEST", [][2]int{{57, 150}}, nil)
	assert.Empty(t, Evaluate(pair, oneSided, pYes, pNo, Settings{}, time.Now()))
}

func TestEvaluateMinTradeSize(t *testing.T) {
	pair := testPair()
	kBook := testutil.KalshiBook("KXWIN-TEST", [][2]int{{57, 150}}, [][2]int{{40, 80}})
	pYes := testutil.PolyBook("asset-yes", [][2]string{{"0.55", "100"}}, [][2]string{{"0.61", "100"}})
	pNo := testutil.PolyBook("asset-no", [][2]string{{"0.38", "100"}}, [][2]string{{"0.40", "120"}})

	opps := Evaluate(pair, kBook, pYes, pNo, Settings{MinSpreadThreshold: 0.02, MinTradeSize: 200}, time.Now())
	assert.Empty(t, opps, "both legs below the minimum trade size")
}

func TestEvaluateThreshold(t *testing.T) {
	pair := testPair()
	kBook := testutil.KalshiBook("KXWIN-TEST", [][2]int{{57, 150}}, [][2]int{{40, 80}})
	pYes := testutil.PolyBook("asset-yes", [][2]string{{"0.55", "100"}}, [][2]string{{"0.61", "100"}})
	pNo := testutil.PolyBook("asset-no", [][2]string{{"0.38", "100"}}, [][2]string{{"0.40", "120"}})

	opps := Evaluate(pair, kBook, pYes, pNo, Settings{MinSpreadThreshold: 0.06, MinTradeSize: 10}, time.Now())
	assert.Empty(t, opps, "0.05 spread under a 0.06 threshold")
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, Settings{MinSpreadThreshold: 0.02, MinTradeSize: 10}.Validate())
	assert.NoError(t, Settings{}.Validate())
	assert.Error(t, Settings{MinSpreadThreshold: 1.5}.Validate())
	assert.Error(t, Settings{MinSpreadThreshold: -0.1}.Validate())
	assert.Error(t, Settings{MinTradeSize: -1}.Validate())
}
