// Package coordination layers a two-phase-commit protocol on the event bus
// so stateful changes (pair lifecycle, arbitrage settings) apply atomically
// across every component that must agree.
package coordination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/bus"
	"github.com/RohitDayanand/polykalshi-client/pkg/types"
)

// Phase is a two-phase-commit protocol phase.
type Phase string

const (
	PhasePrepare  Phase = "prepare"
	PhaseCommit   Phase = "commit"
	PhaseRollback Phase = "rollback"
)

// ResponseEvent carries every participant reply.
const ResponseEvent = "coordination.response"

// DefaultPrepareTimeout bounds each phase of an operation.
const DefaultPrepareTimeout = 30 * time.Second

// sweepInterval is how often expired pending operations are reaped.
const sweepInterval = 5 * time.Second

// Operation is one coordinated change broadcast to participants.
type Operation struct {
	ID       string
	Type     string
	Phase    Phase
	Payload  any
	Expected []string
}

// ComponentResponse is a participant's ACK or NACK for one phase.
type ComponentResponse struct {
	ComponentID string
	OperationID string
	Phase       Phase
	Success     bool
	Data        map[string]any
	Error       string
}

// EventName returns the bus event for an operation type and phase, e.g.
// "coordination.add_pair.prepare".
func EventName(opType string, phase Phase) string {
	return "coordination." + opType + "." + string(phase)
}

type pendingOp struct {
	op       Operation
	respCh   chan *ComponentResponse
	expireCh chan error
	deadline time.Time
}

// Coordinator drives two-phase-commit operations and tracks pending state.
type Coordinator struct {
	bus            *bus.EventBus
	logger         *zap.Logger
	prepareTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingOp

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds coordinator configuration.
type Config struct {
	Bus            *bus.EventBus
	PrepareTimeout time.Duration
	Logger         *zap.Logger
}

// New creates a coordinator and wires its response subscription.
func New(cfg Config) *Coordinator {
	if cfg.PrepareTimeout <= 0 {
		cfg.PrepareTimeout = DefaultPrepareTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		bus:            cfg.Bus,
		logger:         cfg.Logger,
		prepareTimeout: cfg.PrepareTimeout,
		pending:        make(map[string]*pendingOp),
		ctx:            ctx,
		cancel:         cancel,
	}

	c.bus.Subscribe(ResponseEvent, c.onResponse)

	return c
}

// Start launches the background sweeper that expires abandoned operations.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.sweepLoop()
}

// Close stops the sweeper.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
	c.logger.Info("coordinator-closed")
}

// Execute runs a full two-phase-commit round: PREPARE to every expected
// component, COMMIT once all have ACKed, ROLLBACK (fire-and-forget) on any
// NACK, missing ACK, or commit failure. Returns nil only after a fully
// committed operation.
func (c *Coordinator) Execute(ctx context.Context, opType string, payload any, expected []string) error {
	if len(expected) == 0 {
		return &types.CoordinationError{Phase: string(PhasePrepare), Reason: "no expected components"}
	}

	op := Operation{
		ID:       uuid.New().String(),
		Type:     opType,
		Payload:  payload,
		Expected: expected,
	}

	pend := &pendingOp{
		op:       op,
		respCh:   make(chan *ComponentResponse, 2*len(expected)+4),
		expireCh: make(chan error, 1),
		deadline: time.Now().Add(2 * c.prepareTimeout),
	}

	c.mu.Lock()
	c.pending[op.ID] = pend
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, op.ID)
		c.mu.Unlock()
	}()

	OperationsStartedTotal.WithLabelValues(opType).Inc()
	start := time.Now()

	c.logger.Info("coordination-prepare",
		zap.String("operation-id", op.ID),
		zap.String("operation-type", opType),
		zap.Strings("expected", expected))

	if err := c.runPhase(ctx, op, pend, PhasePrepare); err != nil {
		c.rollback(ctx, op)
		OperationsFailedTotal.WithLabelValues(opType, string(PhasePrepare)).Inc()
		return err
	}

	if err := c.runPhase(ctx, op, pend, PhaseCommit); err != nil {
		c.rollback(ctx, op)
		OperationsFailedTotal.WithLabelValues(opType, string(PhaseCommit)).Inc()
		return err
	}

	OperationsCommittedTotal.WithLabelValues(opType).Inc()
	OperationDurationSeconds.Observe(time.Since(start).Seconds())

	c.logger.Info("coordination-committed",
		zap.String("operation-id", op.ID),
		zap.String("operation-type", opType))

	return nil
}

// runPhase broadcasts one phase and waits for an ACK from every expected
// component within the prepare timeout.
func (c *Coordinator) runPhase(ctx context.Context, op Operation, pend *pendingOp, phase Phase) error {
	broadcast := op
	broadcast.Phase = phase
	c.bus.Publish(ctx, EventName(op.Type, phase), broadcast)

	acked := make(map[string]bool, len(op.Expected))
	timer := time.NewTimer(c.prepareTimeout)
	defer timer.Stop()

	for len(acked) < len(op.Expected) {
		select {
		case resp := <-pend.respCh:
			if resp.Phase != phase {
				continue
			}

			if !resp.Success {
				return &types.CoordinationError{
					OperationID: op.ID,
					Phase:       string(phase),
					Reason:      fmt.Sprintf("component %s rejected: %s", resp.ComponentID, resp.Error),
				}
			}

			acked[resp.ComponentID] = true

		case err := <-pend.expireCh:
			return err

		case <-timer.C:
			return &types.CoordinationError{
				OperationID: op.ID,
				Phase:       string(phase),
				Reason:      fmt.Sprintf("timeout waiting for acks, got %d of %d", len(acked), len(op.Expected)),
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// rollback broadcasts the rollback phase. Fire-and-forget: no responses are
// awaited.
func (c *Coordinator) rollback(ctx context.Context, op Operation) {
	op.Phase = PhaseRollback
	c.bus.Publish(ctx, EventName(op.Type, PhaseRollback), op)
	RollbacksTotal.WithLabelValues(op.Type).Inc()

	c.logger.Warn("coordination-rolled-back",
		zap.String("operation-id", op.ID),
		zap.String("operation-type", op.Type))
}

// onResponse routes a participant reply to its pending operation.
func (c *Coordinator) onResponse(ctx context.Context, event string, payload any) error {
	resp, ok := payload.(*ComponentResponse)
	if !ok {
		return fmt.Errorf("unexpected payload on %s: %T", event, payload)
	}

	c.mu.Lock()
	pend, exists := c.pending[resp.OperationID]
	c.mu.Unlock()

	if !exists {
		c.logger.Debug("response-for-unknown-operation",
			zap.String("operation-id", resp.OperationID),
			zap.String("component-id", resp.ComponentID))
		return nil
	}

	select {
	case pend.respCh <- resp:
	default:
		c.logger.Warn("response-channel-full",
			zap.String("operation-id", resp.OperationID))
	}

	return nil
}

// sweepLoop expires pending operations whose deadline has passed, rolling
// them back and delivering a timeout error to the waiting caller.
func (c *Coordinator) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

func (c *Coordinator) sweepExpired() {
	now := time.Now()

	c.mu.Lock()
	var expired []*pendingOp
	for id, pend := range c.pending {
		if now.After(pend.deadline) {
			expired = append(expired, pend)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, pend := range expired {
		c.rollback(c.ctx, pend.op)

		err := &types.CoordinationError{
			OperationID: pend.op.ID,
			Phase:       string(pend.op.Phase),
			Reason:      "operation expired",
		}
		select {
		case pend.expireCh <- err:
		default:
		}

		ExpiredOperationsTotal.Inc()
	}
}
