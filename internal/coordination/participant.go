package coordination

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Participant is a component that takes part in coordinated operations. A
// participant validates feasibility in Prepare, atomically applies the
// change in Commit, and reverts to its pre-prepare state in Rollback.
type Participant interface {
	ComponentID() string
	Prepare(ctx context.Context, op Operation) error
	Commit(ctx context.Context, op Operation) error
	Rollback(ctx context.Context, op Operation)
}

// Register subscribes a participant to the prepare/commit/rollback events of
// the given operation types. Prepare and commit produce ACK/NACK responses;
// rollback is fire-and-forget.
func (c *Coordinator) Register(p Participant, opTypes ...string) {
	for _, opType := range opTypes {
		c.bus.Subscribe(EventName(opType, PhasePrepare), c.participantHandler(p, PhasePrepare))
		c.bus.Subscribe(EventName(opType, PhaseCommit), c.participantHandler(p, PhaseCommit))
		c.bus.Subscribe(EventName(opType, PhaseRollback), c.participantHandler(p, PhaseRollback))
	}

	c.logger.Info("participant-registered",
		zap.String("component-id", p.ComponentID()),
		zap.Strings("operation-types", opTypes))
}

func (c *Coordinator) participantHandler(p Participant, phase Phase) func(context.Context, string, any) error {
	return func(ctx context.Context, event string, payload any) error {
		op, ok := payload.(Operation)
		if !ok {
			return fmt.Errorf("unexpected payload on %s: %T", event, payload)
		}

		switch phase {
		case PhaseRollback:
			p.Rollback(ctx, op)
			return nil

		case PhasePrepare, PhaseCommit:
			var err error
			if phase == PhasePrepare {
				err = p.Prepare(ctx, op)
			} else {
				err = p.Commit(ctx, op)
			}

			resp := &ComponentResponse{
				ComponentID: p.ComponentID(),
				OperationID: op.ID,
				Phase:       phase,
				Success:     err == nil,
			}
			if err != nil {
				resp.Error = err.Error()
				c.logger.Warn("participant-nack",
					zap.String("component-id", p.ComponentID()),
					zap.String("operation-id", op.ID),
					zap.String("phase", string(phase)),
					zap.Error(err))
			}

			c.bus.Publish(ctx, ResponseEvent, resp)
			return nil
		}

		return nil
	}
}
