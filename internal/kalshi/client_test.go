package kalshi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/internal/coordination"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

func newTestClient(t *testing.T) (*Client, *Store) {
	t.Helper()

	store := NewStore()
	c := NewClient(ClientConfig{
		URL:    "wss://example.invalid/ws",
		Store:  store,
		Bus:    bus.New(zap.NewNop()),
		Logger: zap.NewNop(),
	})
	return c, store
}

func TestClientPrepareCommitAddPair(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	pair := &types.MarketPair{
		PairID:       "pair-1",
		KalshiTicker: "KXWIN-TEST",
		PolyYesAsset: "y",
		PolyNoAsset:  "n",
	}

	op := coordination.Operation{ID: "op-1", Type: "add_pair", Payload: pair}
	require.NoError(t, c.Prepare(ctx, op))

	// Nothing applied until commit.
	c.subMu.Lock()
	assert.Empty(t, c.desired)
	c.subMu.Unlock()

	require.NoError(t, c.Commit(ctx, op))

	// Disconnected: the ticker is picked up by the resubscribe on connect.
	c.subMu.Lock()
	assert.True(t, c.desired["KXWIN-TEST"])
	assert.Empty(t, c.staged, "staged change consumed by commit")
	c.subMu.Unlock()

	// The staged change is gone, so a replayed commit is rejected.
	assert.Error(t, c.Commit(ctx, op))
}

func TestClientCommitRemovePairDropsState(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()

	pair := &types.MarketPair{
		PairID:       "pair-1",
		KalshiTicker: "KXWIN-TEST",
		PolyYesAsset: "y",
		PolyNoAsset:  "n",
	}

	add := coordination.Operation{ID: "op-1", Type: "add_pair", Payload: pair}
	require.NoError(t, c.Prepare(ctx, add))
	require.NoError(t, c.Commit(ctx, add))
	store.Ensure("KXWIN-TEST")

	remove := coordination.Operation{ID: "op-2", Type: "remove_pair", Payload: pair}
	require.NoError(t, c.Prepare(ctx, remove))
	require.NoError(t, c.Commit(ctx, remove))

	c.subMu.Lock()
	assert.Empty(t, c.desired)
	c.subMu.Unlock()
	assert.Empty(t, store.MarketKeys())
}

func TestClientRollbackDiscardsStagedChange(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	op := coordination.Operation{
		ID:   "op-1",
		Type: "subscribe_market",
		Payload: &types.SubscribeMarketRequest{
			Platform: types.PlatformKalshi,
			MarketID: "KXUSD-TEST",
		},
	}
	require.NoError(t, c.Prepare(ctx, op))

	c.Rollback(ctx, op)

	assert.Error(t, c.Commit(ctx, op), "rolled-back change must not commit")
	c.subMu.Lock()
	assert.Empty(t, c.desired)
	c.subMu.Unlock()
}
