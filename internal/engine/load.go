package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-block/internal/archive"
	"github.com/jensholdgaard/auction-block/internal/auctionlog"
	"github.com/jensholdgaard/auction-block/internal/clock"
	"github.com/jensholdgaard/auction-block/internal/registry"
	"github.com/jensholdgaard/auction-block/internal/rules"
	"github.com/jensholdgaard/auction-block/internal/snapshot"
)

// LoadFromLog resumes an auction from an existing log file. The header
// rosters rebuild identity and initial state, recorded rule changes are
// re-applied in file order, and the most recent parseable state row becomes
// the live state. The log is reopened for appending, so the session
// continues in the same file.
func LoadFromLog(ctx context.Context, path string, arch archive.Store, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) (*Engine, error) {
	e, err := newEngine("", arch, logger, tp, clk)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "Engine.LoadFromLog",
		trace.WithAttributes(attribute.String("log", path)),
	)
	defer span.End()

	setup, setupWarnings, err := auctionlog.ReadSetup(path)
	e.warnings = append(e.warnings, setupWarnings...)
	if err != nil {
		return nil, err
	}
	e.name = setup.AuctionName
	e.sched = setup.Rules

	teams := make([]registry.Pair, len(setup.Teams))
	for i, t := range setup.Teams {
		teams[i] = registry.Pair{Name: t.Name, ID: t.ID}
	}
	players := make([]registry.Pair, len(setup.Players))
	for i, p := range setup.Players {
		players[i] = registry.Pair{Name: p.Name, ID: p.ID}
	}
	reg, err := registry.FromRecorded(teams, players)
	if err != nil {
		return nil, err
	}
	e.reg = reg

	for _, t := range setup.Teams {
		if err := e.state.AddTeam(t.ID, t.Money); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLogFile, err)
		}
	}
	for _, p := range setup.Players {
		if err := e.state.AddItem(p.ID, p.BaseBid); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLogFile, err)
		}
	}

	history, historyWarnings, err := auctionlog.ReadHistory(path)
	e.warnings = append(e.warnings, historyWarnings...)
	if err != nil {
		return nil, err
	}

	resumed := e.resumeFromRows(history)

	w, err := auctionlog.Open(path)
	if err != nil {
		return nil, err
	}
	e.log = w

	comment := "Resumed from log header; no prior states."
	if resumed != nil {
		comment = fmt.Sprintf("Loaded from log No.%d ('%s' at %s)", resumed.Serial, resumed.Action, resumed.RawTime)
	}
	e.appendLog(ctx, actionLoadHistory, comment)

	e.logger.InfoContext(ctx, "auction resumed",
		slog.String("auction", e.name),
		slog.String("log", path),
		slog.Int("state_rows", len(history)),
	)
	return e, nil
}

// resumeFromRows re-derives the rule schedule from the recorded timeline,
// then applies the latest state row whose snapshot parses, walking backward
// past unusable rows. It returns the row that was applied, or nil when the
// session starts from the header state. e.sched must hold the header rules
// when this is called.
func (e *Engine) resumeFromRows(history []auctionlog.HistoryRow) *auctionlog.HistoryRow {
	if len(history) > 0 {
		e.sched = e.scheduleAsOf(e.sched, history, history[len(history)-1].Serial)
	}

	for i := len(history) - 1; i >= 0; i-- {
		snap, err := snapshot.Parse(history[i].Snapshot)
		if err != nil {
			e.warn(fmt.Sprintf("state row %d unusable, trying earlier: %v", history[i].Serial, err))
			continue
		}
		e.applySnapshot(snap)
		return &history[i]
	}
	return nil
}

// loadSourcePattern extracts the cited source serial from a restore row's
// comment ("Loaded from log No.%d ...").
var loadSourcePattern = regexp.MustCompile(`No\.(\d+)`)

// scheduleAsOf computes the rule schedule in effect at the given serial:
// header rules plus every recorded change at or before it. Restore rows rewind
// the schedule to their cited source, so rule changes in a timeline branch the
// operator traveled away from stay superseded on every later resume.
func (e *Engine) scheduleAsOf(base rules.Schedule, history []auctionlog.HistoryRow, serial int) rules.Schedule {
	sched := base
	for _, row := range history {
		if row.Serial > serial {
			break
		}
		switch row.Action {
		case actionSetBidRules:
			parsed, ruleWarnings, err := rules.ParsePairs([]byte(row.Comment))
			e.warnings = append(e.warnings, ruleWarnings...)
			if err != nil {
				e.warn(fmt.Sprintf("state row %d: unreadable rule change skipped: %v", row.Serial, err))
				continue
			}
			s, schedWarnings := rules.NewSchedule(parsed)
			e.warnings = append(e.warnings, schedWarnings...)
			sched = s
		case actionLoadHistory:
			m := loadSourcePattern.FindStringSubmatch(row.Comment)
			if m == nil {
				continue
			}
			src, err := strconv.Atoi(m[1])
			if err != nil || src >= row.Serial {
				continue
			}
			sched = e.scheduleAsOf(base, history, src)
		}
	}
	return sched
}

// TravelTo rewinds (or fast-forwards) the live state to the history row with
// the given serial. The rewind itself is appended as a new row, so the log
// stays append-only and the detour is visible in the record.
func (e *Engine) TravelTo(ctx context.Context, serial int) error {
	ctx, span := e.tracer.Start(ctx, "Engine.TravelTo",
		trace.WithAttributes(attribute.Int("serial", serial)),
	)
	defer span.End()

	if e.log == nil {
		return fmt.Errorf("%w: no log file open", ErrLogFile)
	}
	history, warnings, err := auctionlog.ReadHistory(e.log.Path())
	e.warnings = append(e.warnings, warnings...)
	if err != nil {
		return err
	}

	var target *auctionlog.HistoryRow
	for i := range history {
		if history[i].Serial == serial {
			target = &history[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: no state row with serial %d", ErrLogFile, serial)
	}

	return e.LoadFromSnapshotJSON(ctx, target.Snapshot, target.Serial, target.Action, target.RawTime)
}

// LoadFromSnapshotJSON force-sets the live state to a recorded snapshot,
// typically a row the caller picked out of History. The restore is appended
// as a new row citing the source, never rewriting the log. The increment
// schedule is rewound to what was in effect at the cited serial, so the live
// session and any later resume agree on the rules.
func (e *Engine) LoadFromSnapshotJSON(ctx context.Context, data []byte, serial int, action, rawTime string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.LoadFromSnapshotJSON",
		trace.WithAttributes(attribute.Int("serial", serial)),
	)
	defer span.End()

	if e.log == nil {
		return fmt.Errorf("%w: no log file open", ErrLogFile)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return fmt.Errorf("%w: state row %d: %v", ErrLogFile, serial, err)
	}

	e.rewindSchedule(serial)
	e.applySnapshot(snap)
	e.appendLog(ctx, actionLoadHistory,
		fmt.Sprintf("Loaded from log No.%d ('%s' at %s)", serial, action, rawTime),
	)

	e.logger.InfoContext(ctx, "state restored from history",
		slog.Int("serial", serial),
		slog.String("action", action),
	)
	return nil
}

// rewindSchedule re-reads the log and sets the schedule to what was in
// effect at the given serial. Failures keep the current schedule with a
// warning; the restore itself still proceeds.
func (e *Engine) rewindSchedule(serial int) {
	setup, _, err := auctionlog.ReadSetup(e.log.Path())
	if err != nil {
		e.warn(fmt.Sprintf("rereading header rules: %v", err))
		return
	}
	history, _, err := auctionlog.ReadHistory(e.log.Path())
	if err != nil {
		e.warn(fmt.Sprintf("rereading rule history: %v", err))
		return
	}
	e.sched = e.scheduleAsOf(setup.Rules, history, serial)
}

// History returns every parseable state row of the auction's log file.
func (e *Engine) History(ctx context.Context) ([]auctionlog.HistoryRow, error) {
	_, span := e.tracer.Start(ctx, "Engine.History")
	defer span.End()

	if e.log == nil {
		return nil, fmt.Errorf("%w: no log file open", ErrLogFile)
	}
	history, warnings, err := auctionlog.ReadHistory(e.log.Path())
	e.warnings = append(e.warnings, warnings...)
	return history, err
}

// applySnapshot overwrites the live state with a recorded snapshot. Team
// rosters are fixed by the header, so snapshot entries for unknown IDs are
// skipped with warnings; the pool is derived from ownership rather than
// trusted from the snapshot.
func (e *Engine) applySnapshot(snap snapshot.Snapshot) {
	for _, id := range e.reg.TeamIDs() {
		status, ok := snap.TeamsStatus[id]
		if !ok {
			e.warn(fmt.Sprintf("snapshot has no status for team %s; keeping current values", id))
			continue
		}
		inventory := make(map[string]int, len(status.Inventory))
		for itemID, price := range status.Inventory {
			if _, known := e.reg.PlayerName(itemID); !known {
				e.warn(fmt.Sprintf("snapshot inventory for team %s names unknown item %s; skipped", id, itemID))
				continue
			}
			inventory[itemID] = price
		}
		if err := e.state.SetTeamStatus(id, status.Money, inventory); err != nil {
			e.warn(fmt.Sprintf("applying snapshot status for team %s: %v", id, err))
		}
	}
	for id := range snap.TeamsStatus {
		if _, known := e.reg.TeamName(id); !known {
			e.warn(fmt.Sprintf("snapshot names unknown team %s; skipped", id))
		}
	}

	e.rnd = nil
	contestedID := ""
	if snap.BiddingActive && snap.CurrentRound != nil {
		cr := snap.CurrentRound
		if _, known := e.reg.PlayerName(cr.PlayerID); !known {
			e.warn(fmt.Sprintf("snapshot round names unknown item %s; round dropped", cr.PlayerID))
		} else {
			r := &round{
				itemID:     cr.PlayerID,
				baseBid:    cr.BaseBid,
				currentBid: cr.CurrentBidAmount,
				leaderID:   idOrEmpty(cr.HighestBidderTeamID),
			}
			if r.leaderID != "" {
				if _, known := e.reg.TeamName(r.leaderID); !known {
					e.warn(fmt.Sprintf("snapshot round names unknown leading team %s; leader cleared", r.leaderID))
					r.leaderID = ""
				}
			}
			for _, h := range cr.BiddingHistory {
				teamID := idOrEmpty(h.BidderTeamID)
				if teamID != "" {
					if _, known := e.reg.TeamName(teamID); !known {
						e.warn(fmt.Sprintf("snapshot bid history names unknown team %s; entry skipped", teamID))
						continue
					}
				}
				r.history = append(r.history, bidEntry{teamID: teamID, amount: h.Amount})
			}
			if len(r.history) == 0 {
				r.history = []bidEntry{{amount: cr.BaseBid}}
			}
			e.rnd = r
			contestedID = cr.PlayerID
		}
	}

	e.state.RebuildPool(contestedID)
}
