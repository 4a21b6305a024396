// Package archive defines the optional secondary sink that mirrors committed
// log rows into a queryable store. The .auctionlog file remains the
// authoritative record; an archive failure is a drainable warning for the
// operator, never a transition failure.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jensholdgaard/auction-block/internal/clock"
	"github.com/jensholdgaard/auction-block/internal/config"
)

// Entry is one mirrored transition.
type Entry struct {
	AuctionName string          `json:"auction_name" db:"auction_name"`
	Timestamp   time.Time       `json:"timestamp" db:"ts"`
	Action      string          `json:"action" db:"action"`
	Snapshot    json.RawMessage `json:"snapshot" db:"snapshot"`
	Comment     string          `json:"comment" db:"comment"`
}

// Store persists mirrored entries.
type Store interface {
	// Record persists one entry.
	Record(ctx context.Context, e Entry) error
	// Recent returns the newest entries for an auction, newest first.
	Recent(ctx context.Context, auctionName string, limit int) ([]Entry, error)
	// Ping checks the underlying connection health.
	Ping(ctx context.Context) error
	// Close releases underlying resources.
	Close() error
}

// Driver is a factory that opens a connection and returns a Store.
type Driver func(ctx context.Context, cfg config.ArchiveConfig, clk clock.Clock) (Store, error)

// registry maps driver names to their factory functions.
var registry = map[string]Driver{}

// Register adds a named driver to the global registry.
// It is intended to be called from init() in each driver package.
func Register(name string, d Driver) {
	registry[name] = d
}

// Open selects the driver named in cfg.Driver and returns a Store.
func Open(ctx context.Context, cfg config.ArchiveConfig, clk clock.Clock) (Store, error) {
	d, ok := registry[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown archive driver %q (registered: %v)", cfg.Driver, registeredNames())
	}
	return d(ctx, cfg, clk)
}

func registeredNames() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	return names
}
