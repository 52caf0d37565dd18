package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/RohitDayanand/polykalshi-client/internal/arbitrage"
)

const insertAlertSQL = `
INSERT INTO arbitrage_alerts (
	id, pair_id, detected_at, spread, direction, side,
	k_price, p_price, k_market_key, p_asset_id,
	execution_size, limiting_venue
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Postgres persists alerts to an arbitrage_alerts table.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgres opens a connection pool and verifies connectivity.
func NewPostgres(dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres-storage-connected")

	return &Postgres{db: db, logger: logger}, nil
}

// newPostgresWithDB wires an existing handle; used by tests.
func newPostgresWithDB(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// StoreAlert implements arbitrage.Storage.
func (p *Postgres) StoreAlert(ctx context.Context, opp *arbitrage.Opportunity) error {
	_, err := p.db.ExecContext(ctx, insertAlertSQL,
		opp.ID,
		opp.PairID,
		opp.Timestamp,
		opp.Spread,
		string(opp.Direction),
		string(opp.Side),
		opp.KalshiPrice,
		opp.PolyPrice,
		opp.KalshiTicker,
		opp.PolyAssetID,
		opp.ExecutionSize,
		opp.Execution.LimitingVenue,
	)
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", opp.ID, err)
	}

	AlertsStoredTotal.WithLabelValues("postgres").Inc()
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
