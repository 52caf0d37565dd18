package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got [][]byte

	q := New("kalshi", 16, func(frame Frame) {
		mu.Lock()
		got = append(got, frame.Data)
		mu.Unlock()
	}, zap.NewNop())
	q.Start()

	require.True(t, q.Put([]byte("one")))
	require.True(t, q.Put([]byte("two")))
	require.True(t, q.Put([]byte("three")))

	q.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, "one", string(got[0]))
	assert.Equal(t, "two", string(got[1]))
	assert.Equal(t, "three", string(got[2]))
}

func TestQueueDropsNewOnOverflow(t *testing.T) {
	block := make(chan struct{})

	q := New("polymarket", 2, func(frame Frame) {
		<-block
	}, zap.NewNop())
	q.Start()

	// First frame occupies the consumer, two fill the buffer.
	require.True(t, q.Put([]byte("a")))
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)
	require.True(t, q.Put([]byte("b")))
	require.True(t, q.Put([]byte("c")))

	// Buffer is full now; the newest frame is the one dropped.
	assert.False(t, q.Put([]byte("d")))

	close(block)
	q.Close()
}

func TestCloseDrainsPendingFrames(t *testing.T) {
	var mu sync.Mutex
	var count int

	q := New("kalshi", 64, func(frame Frame) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		count++
		mu.Unlock()
	}, zap.NewNop())
	q.Start()

	for i := 0; i < 20; i++ {
		require.True(t, q.Put([]byte{byte(i)}))
	}

	q.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count, "close must drain queued frames before returning")
}

func TestPutAfterCloseIsRejected(t *testing.T) {
	q := New("kalshi", 4, func(frame Frame) {}, zap.NewNop())
	q.Start()
	q.Close()

	assert.False(t, q.Put([]byte("late")))

	// Close is idempotent.
	q.Close()
}
