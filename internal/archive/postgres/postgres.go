// Package postgres implements the archive store on Postgres. It registers
// itself as the "postgres" driver via init, matching how drivers are chosen
// through archive.Open.
package postgres

import (
	"context"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/auction-block/internal/archive"
	"github.com/jensholdgaard/auction-block/internal/clock"
	"github.com/jensholdgaard/auction-block/internal/config"
)

func init() {
	archive.Register("postgres", func(ctx context.Context, cfg config.ArchiveConfig, clk clock.Clock) (archive.Store, error) {
		db, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewStore(db, clk), nil
	})
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.ArchiveConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()

	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to archive database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging archive database: %w", err)
	}

	return db, nil
}
