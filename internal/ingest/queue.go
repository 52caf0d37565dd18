// Package ingest decouples venue socket reads from message decoding with a
// bounded FIFO per venue. Overflow policy is drop-new-and-log: preserving
// venue liveness wins over completeness, and the venue's next snapshot
// repairs any loss.
package ingest

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the queue bound used when the config does not override it.
const DefaultCapacity = 1000

// Frame is one raw WebSocket frame plus receive metadata. The payload is
// forwarded verbatim; no parsing happens before the decoder.
type Frame struct {
	Data     []byte
	Received time.Time
}

// FrameHandler consumes a single frame. Invoked by the queue's one consumer
// goroutine, so implementations own their writes without further locking.
type FrameHandler func(frame Frame)

// Queue is a bounded FIFO with a single consumer.
type Queue struct {
	name    string
	frames  chan Frame
	handler FrameHandler
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a queue. capacity <= 0 falls back to DefaultCapacity.
func New(name string, capacity int, handler FrameHandler, logger *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Queue{
		name:    name,
		frames:  make(chan Frame, capacity),
		handler: handler,
		logger:  logger,
	}
}

// Start launches the consumer goroutine.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.consume()
}

func (q *Queue) consume() {
	defer q.wg.Done()

	for frame := range q.frames {
		QueueDepth.WithLabelValues(q.name).Set(float64(len(q.frames)))
		q.handler(frame)
		FramesConsumedTotal.WithLabelValues(q.name).Inc()
	}
}

// Put enqueues a raw frame without blocking. Returns false when the frame
// was dropped, either because the queue is full or already closed.
func (q *Queue) Put(data []byte) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	frame := Frame{Data: data, Received: time.Now()}

	select {
	case q.frames <- frame:
		QueueDepth.WithLabelValues(q.name).Set(float64(len(q.frames)))
		return true
	default:
		FramesDroppedTotal.WithLabelValues(q.name).Inc()
		q.logger.Warn("ingest-queue-full-dropping-frame",
			zap.String("queue", q.name),
			zap.Int("capacity", cap(q.frames)))
		return false
	}
}

// Close stops accepting new frames, drains what is already queued, and
// returns once the consumer has finished.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.frames)
	q.mu.Unlock()

	q.wg.Wait()

	q.logger.Info("ingest-queue-closed", zap.String("queue", q.name))
}

// Len returns the number of frames currently waiting.
func (q *Queue) Len() int {
	return len(q.frames)
}
