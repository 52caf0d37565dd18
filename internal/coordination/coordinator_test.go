package coordination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// fakeParticipant applies integer state changes under 2PC.
type fakeParticipant struct {
	id string

	mu         sync.Mutex
	state      int
	staged     int
	hasStaged  bool
	prepareErr error
	commitErr  error
	rollbacks  int
}

func (f *fakeParticipant) ComponentID() string { return f.id }

func (f *fakeParticipant) Prepare(ctx context.Context, op Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.prepareErr != nil {
		return f.prepareErr
	}

	f.staged = op.Payload.(int)
	f.hasStaged = true
	return nil
}

func (f *fakeParticipant) Commit(ctx context.Context, op Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.commitErr != nil {
		return f.commitErr
	}

	f.state = f.staged
	f.hasStaged = false
	return nil
}

func (f *fakeParticipant) Rollback(ctx context.Context, op Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.staged = 0
	f.hasStaged = false
	f.rollbacks++
}

func (f *fakeParticipant) snapshot() (state int, staged bool, rollbacks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.hasStaged, f.rollbacks
}

func newTestCoordinator(t *testing.T, timeout time.Duration) (*Coordinator, *bus.EventBus) {
	t.Helper()

	b := bus.New(zap.NewNop())
	c := New(Config{Bus: b, PrepareTimeout: timeout, Logger: zap.NewNop()})
	t.Cleanup(c.Close)

	return c, b
}

func TestExecuteCommitsAcrossAllParticipants(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second)

	p1 := &fakeParticipant{id: "registry"}
	p2 := &fakeParticipant{id: "kalshi-client"}
	c.Register(p1, "update_settings")
	c.Register(p2, "update_settings")

	err := c.Execute(context.Background(), "update_settings", 42, []string{"registry", "kalshi-client"})
	require.NoError(t, err)

	for _, p := range []*fakeParticipant{p1, p2} {
		state, staged, rollbacks := p.snapshot()
		assert.Equal(t, 42, state)
		assert.False(t, staged)
		assert.Equal(t, 0, rollbacks)
	}
}

func TestPrepareNackRollsBackWithoutStateChange(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second)

	healthy := &fakeParticipant{id: "registry"}
	rejecting := &fakeParticipant{id: "kalshi-client", prepareErr: errors.New("ticker unknown")}
	c.Register(healthy, "add_pair")
	c.Register(rejecting, "add_pair")

	err := c.Execute(context.Background(), "add_pair", 7, []string{"registry", "kalshi-client"})
	require.Error(t, err)

	var coordErr *types.CoordinationError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, string(PhasePrepare), coordErr.Phase)

	// Observable state unchanged, staged state rolled back.
	state, staged, rollbacks := healthy.snapshot()
	assert.Equal(t, 0, state)
	assert.False(t, staged)
	assert.GreaterOrEqual(t, rollbacks, 1)
}

func TestMissingAckTimesOutAndRollsBack(t *testing.T) {
	c, _ := newTestCoordinator(t, 50*time.Millisecond)

	registered := &fakeParticipant{id: "registry"}
	c.Register(registered, "remove_pair")

	// "broadcaster" never registered, so its ACK never arrives.
	err := c.Execute(context.Background(), "remove_pair", 1, []string{"registry", "broadcaster"})
	require.Error(t, err)

	var coordErr *types.CoordinationError
	require.ErrorAs(t, err, &coordErr)
	assert.Contains(t, coordErr.Reason, "timeout")

	state, _, rollbacks := registered.snapshot()
	assert.Equal(t, 0, state)
	assert.GreaterOrEqual(t, rollbacks, 1)
}

func TestCommitFailureTriggersRollback(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second)

	flaky := &fakeParticipant{id: "registry", commitErr: errors.New("disk gone")}
	c.Register(flaky, "update_settings")

	err := c.Execute(context.Background(), "update_settings", 9, []string{"registry"})
	require.Error(t, err)

	var coordErr *types.CoordinationError
	require.ErrorAs(t, err, &coordErr)
	assert.Equal(t, string(PhaseCommit), coordErr.Phase)

	state, _, rollbacks := flaky.snapshot()
	assert.Equal(t, 0, state)
	assert.GreaterOrEqual(t, rollbacks, 1)
}

func TestExecuteRequiresExpectedComponents(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second)

	err := c.Execute(context.Background(), "update_settings", 1, nil)
	require.Error(t, err)
}

func TestSequentialOperationsAreIndependent(t *testing.T) {
	c, _ := newTestCoordinator(t, time.Second)

	p := &fakeParticipant{id: "registry"}
	c.Register(p, "update_settings")

	require.NoError(t, c.Execute(context.Background(), "update_settings", 1, []string{"registry"}))
	require.NoError(t, c.Execute(context.Background(), "update_settings", 2, []string{"registry"}))

	state, _, _ := p.snapshot()
	assert.Equal(t, 2, state)
}
