package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconnectSucceedsOnFirstAttempt(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{Interval: time.Millisecond, MaxRetries: 3}, zap.NewNop())

	calls := 0
	err := rm.Reconnect(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestReconnectRetriesUntilSuccess(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{Interval: time.Millisecond, MaxRetries: 3}, zap.NewNop())

	calls := 0
	err := rm.Reconnect(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestReconnectExhaustsBudget(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{Interval: time.Millisecond, MaxRetries: 3}, zap.NewNop())

	calls := 0
	err := rm.Reconnect(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "budget exhausted")
}

func TestReconnectHonorsCancellation(t *testing.T) {
	rm := NewReconnectManager(ReconnectConfig{Interval: time.Hour, MaxRetries: 3}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rm.Reconnect(ctx, func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
