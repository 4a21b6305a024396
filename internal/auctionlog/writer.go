// Package auctionlog reads and writes the append-only .auctionlog file: a
// CSV-based log whose header records the auction's rosters and bid rules and
// whose events section carries one full JSON state snapshot per committed
// transition. The latest snapshot is authoritative; the file is never
// rewritten, only appended to.
package auctionlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jensholdgaard/auction-block/internal/rules"
)

// Section and key markers of the log format. Frozen: existing log files must
// keep parsing.
const (
	sectionConfig         = "[CONFIG]"
	sectionTeamsInitial   = "[TEAMS_INITIAL]"
	sectionPlayersInitial = "[PLAYERS_INITIAL]"
	sectionAuctionStates  = "[AUCTION_STATES]"

	keyAuctionName       = "AuctionName"
	keyDate              = "Date"
	keyTime              = "Time"
	keyTotalPlayers      = "TotalInitialPlayers"
	keyBidIncrementRules = "BidIncrementRules"

	// timestampLayout matches the millisecond timestamps the format has
	// always used for event rows.
	timestampLayout = "2006-01-02 15:04:05.000"
)

// FileExtension is the canonical extension for auction log files.
const FileExtension = ".auctionlog"

// ErrLogFile indicates the log file could not be created, opened, or parsed
// well enough to resume from.
var ErrLogFile = errors.New("auction log failure")

// TeamRow is one [TEAMS_INITIAL] row.
type TeamRow struct {
	Name  string
	ID    string
	Money int
}

// PlayerRow is one [PLAYERS_INITIAL] row.
type PlayerRow struct {
	Name    string
	ID      string
	BaseBid int
}

// Header is everything the log records before its events section.
type Header struct {
	AuctionName string
	CreatedAt   time.Time
	Rules       rules.Schedule
	Teams       []TeamRow
	Players     []PlayerRow
}

// Entry is one committed transition in the [AUCTION_STATES] section.
type Entry struct {
	Timestamp time.Time
	Action    string
	Snapshot  []byte
	Comment   string
}

// Writer appends entries to one auction's log file. It holds the file handle
// for the engine's lifetime and flushes to durable storage on every append;
// a transition is not complete until its row is on disk. Writer does no
// locking: the engine's single-writer discipline covers it.
type Writer struct {
	path string
	f    *os.File
	csvw *csv.Writer
}

// Create writes a fresh log file with the full header section and leaves the
// file open for appending event rows. An unwritable log at creation time is
// fatal: no auction runs without a durable log.
func Create(path string, hdr Header) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrLogFile, path, err)
	}

	if err := writeHeader(f, hdr); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: syncing header of %s: %v", ErrLogFile, path, err)
	}

	return &Writer{path: path, f: f, csvw: csv.NewWriter(f)}, nil
}

// Open reopens an existing log for appending. Used on resume.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s for append: %v", ErrLogFile, path, err)
	}
	return &Writer{path: path, f: f, csvw: csv.NewWriter(f)}, nil
}

func writeHeader(f *os.File, hdr Header) error {
	rulesJSON, err := hdr.Rules.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encoding bid increment rules: %v", ErrLogFile, err)
	}

	// Config lines are key,value with a '#' prefix. The auction name is the
	// only free-text value and commas in it would break the line, but the
	// format predates this writer and stays as-is.
	var b []byte
	b = append(b, sectionConfig+"\n"...)
	b = append(b, fmt.Sprintf("#%s,%s\n", keyAuctionName, hdr.AuctionName)...)
	b = append(b, fmt.Sprintf("#%s,%s\n", keyDate, hdr.CreatedAt.Format("2006-01-02"))...)
	b = append(b, fmt.Sprintf("#%s,%s\n", keyTime, hdr.CreatedAt.Format("15:04:05"))...)
	b = append(b, fmt.Sprintf("#%s,%d\n", keyTotalPlayers, len(hdr.Players))...)
	b = append(b, fmt.Sprintf("#%s,%s\n\n", keyBidIncrementRules, rulesJSON)...)
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("%w: writing config section: %v", ErrLogFile, err)
	}

	if _, err := f.WriteString(sectionTeamsInitial + "\n"); err != nil {
		return fmt.Errorf("%w: writing teams section: %v", ErrLogFile, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"#TeamName", "TeamID", "StartingMoney"}); err != nil {
		return fmt.Errorf("%w: writing teams header row: %v", ErrLogFile, err)
	}
	for _, t := range hdr.Teams {
		if err := w.Write([]string{t.Name, t.ID, fmt.Sprintf("%d", t.Money)}); err != nil {
			return fmt.Errorf("%w: writing team row %s: %v", ErrLogFile, t.ID, err)
		}
	}
	w.Flush()

	if _, err := f.WriteString("\n" + sectionPlayersInitial + "\n"); err != nil {
		return fmt.Errorf("%w: writing players section: %v", ErrLogFile, err)
	}
	if err := w.Write([]string{"#PlayerName", "PlayerID", "BaseBid"}); err != nil {
		return fmt.Errorf("%w: writing players header row: %v", ErrLogFile, err)
	}
	for _, p := range hdr.Players {
		if err := w.Write([]string{p.Name, p.ID, fmt.Sprintf("%d", p.BaseBid)}); err != nil {
			return fmt.Errorf("%w: writing player row %s: %v", ErrLogFile, p.ID, err)
		}
	}
	w.Flush()

	if _, err := f.WriteString("\n" + sectionAuctionStates + "\n"); err != nil {
		return fmt.Errorf("%w: writing states section: %v", ErrLogFile, err)
	}
	if err := w.Write([]string{"#Timestamp", "ActionDescription", "JSONStateSnapshot", "Comment"}); err != nil {
		return fmt.Errorf("%w: writing states header row: %v", ErrLogFile, err)
	}
	w.Flush()
	return w.Error()
}

// Append durably writes one event row. The row is flushed and synced before
// returning; an error here means the transition may not survive a crash.
func (w *Writer) Append(e Entry) error {
	if w.f == nil {
		return fmt.Errorf("%w: log writer is closed", ErrLogFile)
	}
	row := []string{
		e.Timestamp.Format(timestampLayout),
		e.Action,
		string(e.Snapshot),
		e.Comment,
	}
	if err := w.csvw.Write(row); err != nil {
		return fmt.Errorf("%w: writing event row: %v", ErrLogFile, err)
	}
	w.csvw.Flush()
	if err := w.csvw.Error(); err != nil {
		return fmt.Errorf("%w: flushing event row: %v", ErrLogFile, err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("%w: syncing event row: %v", ErrLogFile, err)
	}
	return nil
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Close releases the file handle. The caller is responsible for appending
// any final session-end entry first.
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	if err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrLogFile, w.path, err)
	}
	return nil
}
