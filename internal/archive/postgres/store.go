package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auction-block/internal/archive"
	"github.com/jensholdgaard/auction-block/internal/clock"
)

// Store implements archive.Store backed by Postgres.
type Store struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewStore returns a new Store.
func NewStore(db *sqlx.DB, clk clock.Clock) *Store {
	return &Store{db: db, clk: clk}
}

// Record inserts one mirrored log entry.
func (s *Store) Record(ctx context.Context, e archive.Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = s.clk.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auction_entries (auction_name, ts, action, snapshot, comment)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.AuctionName, ts, e.Action, []byte(e.Snapshot), e.Comment)
	if err != nil {
		return fmt.Errorf("inserting archive entry (action=%s): %w", e.Action, err)
	}
	return nil
}

// Recent returns the newest entries for an auction, newest first.
func (s *Store) Recent(ctx context.Context, auctionName string, limit int) ([]archive.Entry, error) {
	var entries []archive.Entry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT auction_name, ts, action, snapshot, comment
		 FROM auction_entries
		 WHERE auction_name = $1
		 ORDER BY id DESC
		 LIMIT $2`, auctionName, limit)
	if err != nil {
		return nil, fmt.Errorf("loading archive entries: %w", err)
	}
	return entries, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
