package arbitrage

import "context"

// Storage persists deduplicated arbitrage alerts. Implementations live in
// internal/storage; console output is the default, Postgres is optional.
type Storage interface {
	StoreAlert(ctx context.Context, opp *Opportunity) error
	Close() error
}
