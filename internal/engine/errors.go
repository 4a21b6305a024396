package engine

import (
	"errors"

	"github.com/jensholdgaard/auction-block/internal/auctionlog"
	"github.com/jensholdgaard/auction-block/internal/domain"
	"github.com/jensholdgaard/auction-block/internal/registry"
)

// Validation errors: expected auction flow, rejected synchronously with no
// state change and no log entry.
var (
	ErrItemNotSelected = errors.New("no item selected for bidding")
	ErrInvalidBid      = errors.New("invalid bid")
	ErrNoBids          = errors.New("no bids placed")
	ErrUnknownTeam     = errors.New("unknown team")
	// ErrRoundInProgress rejects selecting a new item while the contested
	// one has real bids; the operator must sell or pass it explicitly so
	// bid history is never silently discarded.
	ErrRoundInProgress = errors.New("contested item already has bids")
)

// Harder failure kinds, re-exported so callers can match on the engine
// package alone.
var (
	ErrInsufficientFunds = domain.ErrInsufficientFunds
	ErrInitialization    = registry.ErrInitialization
	ErrLogFile           = auctionlog.ErrLogFile
)
