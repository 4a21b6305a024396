// Package engine implements the auction state machine behind the operator
// UIs: one item on the block at a time, budget-checked bids under the
// increment schedule, undo of the last bid, and a durable snapshot appended
// to the auction log after every committed transition.
//
// The engine holds no internal locks. All mutating calls must be serialized
// onto one logical thread of control by the caller; read-only projections
// are safe anywhere as long as they do not interleave with an in-flight
// mutation on the same instance.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/auction-block/internal/archive"
	"github.com/jensholdgaard/auction-block/internal/auctionlog"
	"github.com/jensholdgaard/auction-block/internal/clock"
	"github.com/jensholdgaard/auction-block/internal/domain"
	"github.com/jensholdgaard/auction-block/internal/registry"
	"github.com/jensholdgaard/auction-block/internal/rules"
	"github.com/jensholdgaard/auction-block/internal/snapshot"
)

// Engine owns all domain state for one auction: the registry, team budgets
// and inventories, the item pool, the increment schedule, the active round,
// and the log file handle. Callers hold one Engine per auction.
type Engine struct {
	name  string
	reg   *registry.Registry
	state *domain.State
	sched rules.Schedule
	rnd   *round

	log  *auctionlog.Writer
	arch archive.Store

	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock

	warnings []string
}

// TeamSetup is one team in a new auction's roster.
type TeamSetup struct {
	Name  string
	Money int
}

// PlayerSetup is one auctionable player in a new auction's roster.
type PlayerSetup struct {
	Name    string
	BaseBid int
}

// SetupConfig describes a new auction.
type SetupConfig struct {
	Name    string
	Teams   []TeamSetup
	Players []PlayerSetup
	// Rules is the custom increment schedule; nil or empty uses defaults.
	Rules []rules.Rule
	// LogPath pins the log file location. Empty derives
	// <name>_<timestamp>.auctionlog under LogDir.
	LogPath string
	LogDir  string
}

var logNameSanitizer = regexp.MustCompile(`[^\w\s_.-]`)

// SetupNewAuction validates the rosters, assigns stable IDs, creates the log
// file with its header section, and records the initial state. An unwritable
// log is fatal here: no auction runs without a durable record.
func SetupNewAuction(ctx context.Context, cfg SetupConfig, arch archive.Store, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) (*Engine, error) {
	e, err := newEngine(cfg.Name, arch, logger, tp, clk)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "Engine.SetupNewAuction",
		trace.WithAttributes(
			attribute.String("auction.name", cfg.Name),
			attribute.Int("teams", len(cfg.Teams)),
			attribute.Int("players", len(cfg.Players)),
		),
	)
	defer span.End()

	teamNames := make([]string, len(cfg.Teams))
	for i, t := range cfg.Teams {
		if t.Money < 0 {
			return nil, fmt.Errorf("%w: team %q has negative starting money", ErrInitialization, t.Name)
		}
		teamNames[i] = t.Name
	}
	playerNames := make([]string, len(cfg.Players))
	for i, p := range cfg.Players {
		if p.BaseBid < 0 {
			return nil, fmt.Errorf("%w: player %q has negative base bid", ErrInitialization, p.Name)
		}
		playerNames[i] = p.Name
	}

	reg, err := registry.New(teamNames, playerNames)
	if err != nil {
		return nil, err
	}
	e.reg = reg

	for _, t := range cfg.Teams {
		id, _ := reg.TeamID(t.Name)
		if err := e.state.AddTeam(id, t.Money); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}
	}
	for _, p := range cfg.Players {
		id, _ := reg.PlayerID(p.Name)
		if err := e.state.AddItem(id, p.BaseBid); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}
	}

	sched, schedWarnings := rules.NewSchedule(cfg.Rules)
	e.sched = sched
	e.warnings = append(e.warnings, schedWarnings...)

	path := cfg.LogPath
	if path == "" {
		safe := strings.ReplaceAll(strings.TrimSpace(logNameSanitizer.ReplaceAllString(cfg.Name, "")), " ", "_")
		path = filepath.Join(cfg.LogDir, fmt.Sprintf("%s_%s%s", safe, e.clock.Now().Format("20060102_150405"), auctionlog.FileExtension))
	}

	w, err := auctionlog.Create(path, auctionlog.Header{
		AuctionName: cfg.Name,
		CreatedAt:   e.clock.Now(),
		Rules:       e.sched,
		Teams:       e.headerTeams(),
		Players:     e.headerPlayers(),
	})
	if err != nil {
		return nil, err
	}
	e.log = w

	e.appendLog(ctx, actionInitialSetup, "Initial auction state established.")

	e.logger.InfoContext(ctx, "auction created",
		slog.String("auction", cfg.Name),
		slog.String("log", path),
		slog.Int("teams", len(cfg.Teams)),
		slog.Int("players", len(cfg.Players)),
	)
	return e, nil
}

func newEngine(name string, arch archive.Store, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	tracer := tp.Tracer("github.com/jensholdgaard/auction-block/internal/engine")
	return &Engine{
		name:   name,
		state:  domain.NewState(),
		sched:  rules.DefaultSchedule(),
		arch:   arch,
		logger: logger,
		tracer: tracer,
		clock:  clk,
	}, nil
}

// Name returns the auction's display name.
func (e *Engine) Name() string { return e.name }

// LogPath returns the path of the auction's log file.
func (e *Engine) LogPath() string {
	if e.log == nil {
		return ""
	}
	return e.log.Path()
}

// SetBidIncrementRules replaces the increment schedule. Invalid rules are
// skipped with warnings; a wholly invalid set falls back to defaults. The
// change is logged as its own transition, with the rules JSON in the comment
// column so a resume can re-apply it.
func (e *Engine) SetBidIncrementRules(ctx context.Context, rs []rules.Rule) {
	ctx, span := e.tracer.Start(ctx, "Engine.SetBidIncrementRules")
	defer span.End()

	sched, warnings := rules.NewSchedule(rs)
	e.sched = sched
	e.warnings = append(e.warnings, warnings...)

	rulesJSON, err := sched.MarshalJSON()
	if err != nil {
		e.warn(fmt.Sprintf("encoding bid increment rules for log: %v", err))
		return
	}
	e.appendLog(ctx, actionSetBidRules, string(rulesJSON))
	e.logger.InfoContext(ctx, "bid increment rules updated", slog.String("rules", string(rulesJSON)))
}

// SelectItem puts an available item on the block at its base price. If the
// currently contested item has no bids it is auto-passed back to the pool
// first and the returned advisory says so; if it has bids, selection is
// rejected and the operator must sell or pass explicitly.
func (e *Engine) SelectItem(ctx context.Context, itemName string) (advisory string, err error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SelectItem",
		trace.WithAttributes(attribute.String("item", itemName)),
	)
	defer span.End()

	itemID, ok := e.reg.PlayerID(itemName)
	if !ok {
		return "", fmt.Errorf("%w: unknown player %q", ErrItemNotSelected, itemName)
	}
	if !e.state.Available(itemID) {
		return "", fmt.Errorf("%w: player %q is not available", ErrItemNotSelected, itemName)
	}

	if e.rnd != nil {
		if e.rnd.bids() > 0 {
			prevName, _ := e.reg.PlayerName(e.rnd.itemID)
			return "", fmt.Errorf("%w: %q must be sold or passed first", ErrRoundInProgress, prevName)
		}
		prevName, _ := e.reg.PlayerName(e.rnd.itemID)
		e.state.ReturnToPool(e.rnd.itemID)
		e.rnd = nil
		e.appendLog(ctx, actionPassItemAuto+prevName, fmt.Sprintf("'%s' passed (new selection).", prevName))
		advisory = fmt.Sprintf("Previous item '%s' was passed (no bids).", prevName)
	}

	item := e.state.Item(itemID)
	e.state.TakeFromPool(itemID)
	e.rnd = newRound(itemID, item.BaseBid)
	e.appendLog(ctx, actionSelectItem+itemName, fmt.Sprintf("%s selected for auction.", itemName))

	e.logger.InfoContext(ctx, "item selected",
		slog.String("item", itemName),
		slog.Int("base_bid", item.BaseBid),
	)
	return advisory, nil
}

// PlaceBid places the next bid for a team. The first bid claims the opening
// price; later bids add the increment the schedule assigns to the current
// price. Rejections leave state untouched and write no log entry.
func (e *Engine) PlaceBid(ctx context.Context, teamName string) (price int, leader string, err error) {
	ctx, span := e.tracer.Start(ctx, "Engine.PlaceBid",
		trace.WithAttributes(attribute.String("team", teamName)),
	)
	defer span.End()

	if e.rnd == nil {
		return 0, "", fmt.Errorf("%w: no item is up for bidding", ErrItemNotSelected)
	}
	teamID, ok := e.reg.TeamID(teamName)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownTeam, teamName)
	}
	if e.rnd.leaderID == teamID {
		return 0, "", fmt.Errorf("%w: %s is already the highest bidder", ErrInvalidBid, teamName)
	}

	proposed := e.rnd.currentBid
	if e.rnd.leaderID != "" {
		proposed += e.sched.IncrementFor(e.rnd.currentBid)
	}

	team := e.state.Team(teamID)
	if team.Money < proposed {
		return 0, "", fmt.Errorf("%w: %s has %s, needs %s",
			ErrInsufficientFunds, teamName, domain.FormatMoney(team.Money), domain.FormatMoney(proposed))
	}

	e.rnd.placeBid(teamID, proposed)
	itemName, _ := e.reg.PlayerName(e.rnd.itemID)
	e.appendLog(ctx,
		fmt.Sprintf("%s%s for %s at %d", actionBid, teamName, itemName, proposed),
		fmt.Sprintf("Bid by %s", teamName),
	)

	e.logger.InfoContext(ctx, "bid placed",
		slog.String("team", teamName),
		slog.String("item", itemName),
		slog.Int("amount", proposed),
	)
	return proposed, teamName, nil
}

// UndoLastBid pops the most recent bid and restores price and leader from
// the one before it. The seed entry cannot be undone.
func (e *Engine) UndoLastBid(ctx context.Context) (price int, leader string, err error) {
	ctx, span := e.tracer.Start(ctx, "Engine.UndoLastBid")
	defer span.End()

	if e.rnd == nil {
		return 0, "", fmt.Errorf("%w: no item is up for bidding", ErrItemNotSelected)
	}
	if e.rnd.bids() == 0 {
		return 0, "", fmt.Errorf("%w: nothing to undo beyond the opening price", ErrInvalidBid)
	}

	undoneID := e.rnd.undo()
	undoneName, _ := e.reg.TeamName(undoneID)
	itemName, _ := e.reg.PlayerName(e.rnd.itemID)
	e.appendLog(ctx,
		fmt.Sprintf("%s%s for %s", actionUndoBid, undoneName, itemName),
		"Last bid undone.",
	)

	leaderName := ""
	if e.rnd.leaderID != "" {
		leaderName, _ = e.reg.TeamName(e.rnd.leaderID)
	}
	e.logger.InfoContext(ctx, "bid undone",
		slog.String("team", undoneName),
		slog.String("item", itemName),
		slog.Int("restored_price", e.rnd.currentBid),
	)
	return e.rnd.currentBid, leaderName, nil
}

// Sale is the result of a successful SellCurrentItem.
type Sale struct {
	ItemName string
	TeamName string
	Price    int
	Message  string
}

// SellCurrentItem awards the contested item to the leading team at the
// current price. The item leaves the pool permanently.
func (e *Engine) SellCurrentItem(ctx context.Context) (*Sale, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SellCurrentItem")
	defer span.End()

	if e.rnd == nil {
		return nil, fmt.Errorf("%w: no item is up for bidding", ErrItemNotSelected)
	}
	if e.rnd.leaderID == "" {
		itemName, _ := e.reg.PlayerName(e.rnd.itemID)
		return nil, fmt.Errorf("%w: no bids for %s", ErrNoBids, itemName)
	}

	itemID, teamID, finalBid := e.rnd.itemID, e.rnd.leaderID, e.rnd.currentBid
	if err := e.state.Award(teamID, itemID, finalBid); err != nil {
		// Bid validation keeps budgets ahead of bids, so this only fires on
		// corrupted state.
		return nil, err
	}
	e.rnd = nil

	itemName, _ := e.reg.PlayerName(itemID)
	teamName, _ := e.reg.TeamName(teamID)
	message := fmt.Sprintf("%s bought %s for %s", teamName, itemName, domain.FormatMoney(finalBid))
	e.appendLog(ctx,
		fmt.Sprintf("%s%s to %s for %d", actionSold, itemName, teamName, finalBid),
		message,
	)

	e.logger.InfoContext(ctx, "item sold",
		slog.String("item", itemName),
		slog.String("team", teamName),
		slog.Int("price", finalBid),
	)
	return &Sale{ItemName: itemName, TeamName: teamName, Price: finalBid, Message: message}, nil
}

// PassCurrentItem returns the contested item to the pool at its original
// base price, discarding the round's bid history.
func (e *Engine) PassCurrentItem(ctx context.Context, reason string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.PassCurrentItem")
	defer span.End()

	if e.rnd == nil {
		return "", fmt.Errorf("%w: no item is up for bidding", ErrItemNotSelected)
	}
	if reason == "" {
		reason = "Player passed/unsold by auctioneer."
	}

	itemID := e.rnd.itemID
	itemName, _ := e.reg.PlayerName(itemID)
	e.state.ReturnToPool(itemID)
	e.rnd = nil
	e.appendLog(ctx, actionPassItem+itemName, reason)

	e.logger.InfoContext(ctx, "item passed",
		slog.String("item", itemName),
		slog.String("reason", reason),
	)
	return itemName, nil
}

// DrainWarnings returns accumulated non-fatal warnings and clears the list.
func (e *Engine) DrainWarnings() []string {
	out := e.warnings
	e.warnings = nil
	return out
}

// Close appends a final session-end snapshot and releases the log handle. A
// still-contested item is passed back to the pool first so the recorded
// final state is idle.
func (e *Engine) Close(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "Engine.Close")
	defer span.End()

	if e.log == nil {
		return nil
	}

	if e.rnd != nil {
		itemName, _ := e.reg.PlayerName(e.rnd.itemID)
		e.state.ReturnToPool(e.rnd.itemID)
		e.rnd = nil
		e.appendLog(ctx, actionSessionEndAutoPass+itemName, "Session ended with item active.")
	} else {
		e.appendLog(ctx, actionSessionEnd, "Auction session ended.")
	}

	err := e.log.Close()
	e.log = nil
	if err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "auction session closed", slog.String("auction", e.name))
	return nil
}

func (e *Engine) warn(msg string) {
	e.warnings = append(e.warnings, msg)
	e.logger.Warn("engine warning", slog.String("warning", msg))
}

// appendLog writes the post-transition snapshot to the auction log and
// mirrors it to the archive. By the time this runs the in-memory mutation is
// already committed, so failures become warnings: the state advanced but may
// not survive a crash.
func (e *Engine) appendLog(ctx context.Context, action, comment string) {
	snap := e.buildSnapshot()
	data, err := snap.Marshal()
	if err != nil {
		e.warn(fmt.Sprintf("encoding state snapshot for %q: %v", action, err))
		return
	}

	now := e.clock.Now()
	if e.log != nil {
		if err := e.log.Append(auctionlog.Entry{
			Timestamp: now,
			Action:    action,
			Snapshot:  data,
			Comment:   comment,
		}); err != nil {
			e.warn(fmt.Sprintf("appending %q to auction log: %v", action, err))
		}
	}

	if e.arch != nil {
		if err := e.arch.Record(ctx, archive.Entry{
			AuctionName: e.name,
			Timestamp:   now,
			Action:      action,
			Snapshot:    data,
			Comment:     comment,
		}); err != nil {
			e.warn(fmt.Sprintf("archiving %q: %v", action, err))
		}
	}
}

// buildSnapshot serializes the full current state in the wire shape of the
// log format.
func (e *Engine) buildSnapshot() snapshot.Snapshot {
	teams := make(map[string]snapshot.TeamStatus, len(e.reg.TeamIDs()))
	for _, id := range e.reg.TeamIDs() {
		team := e.state.Team(id)
		inventory := make(map[string]int, len(team.Inventory))
		for itemID, price := range team.Inventory {
			inventory[itemID] = price
		}
		teams[id] = snapshot.TeamStatus{Money: team.Money, Inventory: inventory}
	}

	available := e.state.AvailableItems()
	pool := make([]snapshot.PoolItem, len(available))
	for i, item := range available {
		pool[i] = snapshot.PoolItem{ID: item.ID, BaseBid: item.BaseBid}
	}

	return snapshot.Snapshot{
		TeamsStatus:          teams,
		AvailablePlayersPool: pool,
		CurrentRound:         e.rnd.toSnapshot(),
		BiddingActive:        e.rnd != nil,
	}
}

func (e *Engine) headerTeams() []auctionlog.TeamRow {
	out := make([]auctionlog.TeamRow, 0, len(e.reg.TeamIDs()))
	for _, id := range e.reg.TeamIDs() {
		name, _ := e.reg.TeamName(id)
		out = append(out, auctionlog.TeamRow{Name: name, ID: id, Money: e.state.Team(id).Money})
	}
	return out
}

func (e *Engine) headerPlayers() []auctionlog.PlayerRow {
	out := make([]auctionlog.PlayerRow, 0, len(e.reg.PlayerIDs()))
	for _, id := range e.reg.PlayerIDs() {
		name, _ := e.reg.PlayerName(id)
		out = append(out, auctionlog.PlayerRow{Name: name, ID: id, BaseBid: e.state.Item(id).BaseBid})
	}
	return out
}
