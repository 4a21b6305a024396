package auctionlog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jensholdgaard/auction-block/internal/auctionlog"
	"github.com/jensholdgaard/auction-block/internal/rules"
)

func testHeader() auctionlog.Header {
	sched, _ := rules.NewSchedule([]rules.Rule{{Threshold: 0, Increment: 1}, {Threshold: 100, Increment: 10}})
	return auctionlog.Header{
		AuctionName: "Summer League",
		CreatedAt:   time.Date(2026, 8, 28, 10, 30, 0, 0, time.Local),
		Rules:       sched,
		Teams: []auctionlog.TeamRow{
			{Name: "Alpha", ID: "T1", Money: 1000},
			{Name: "Bravo, United", ID: "T2", Money: 800},
		},
		Players: []auctionlog.PlayerRow{
			{Name: "One", ID: "P101", BaseBid: 100},
			{Name: "Two", ID: "P102", BaseBid: 80},
		},
	}
}

func TestCreateAndReadSetup_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summer.auctionlog")
	w, err := auctionlog.Create(path, testHeader())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	setup, warnings, err := auctionlog.ReadSetup(path)
	if err != nil {
		t.Fatalf("ReadSetup: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if setup.AuctionName != "Summer League" {
		t.Errorf("auction name = %q", setup.AuctionName)
	}
	if len(setup.Teams) != 2 || setup.Teams[1].Name != "Bravo, United" || setup.Teams[1].ID != "T2" {
		t.Errorf("teams = %+v", setup.Teams)
	}
	if len(setup.Players) != 2 || setup.Players[0].BaseBid != 100 {
		t.Errorf("players = %+v", setup.Players)
	}
	if got := setup.Rules.IncrementFor(100); got != 10 {
		t.Errorf("rules from header: IncrementFor(100) = %d, want 10", got)
	}
	if got := setup.Rules.IncrementFor(50); got != 1 {
		t.Errorf("rules from header: IncrementFor(50) = %d, want 1", got)
	}
}

func TestAppendAndLastState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.auctionlog")
	w, err := auctionlog.Create(path, testHeader())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries := []auctionlog.Entry{
		{Timestamp: time.Now(), Action: "INITIAL_SETUP", Snapshot: []byte(`{"bidding_active":false}`), Comment: "Initial auction state established."},
		{Timestamp: time.Now(), Action: "SELECT_ITEM: One", Snapshot: []byte(`{"bidding_active":true}`), Comment: "One selected for auction."},
	}
	for _, e := range entries {
		if err := w.Append(e); err != nil {
			t.Fatalf("Append(%s): %v", e.Action, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	last, warnings, err := auctionlog.LastState(path)
	if err != nil {
		t.Fatalf("LastState: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if last == nil {
		t.Fatal("expected a last state")
	}
	if last.Serial != 2 || last.Action != "SELECT_ITEM: One" {
		t.Errorf("last = %+v", last)
	}
	if string(last.Snapshot) != `{"bidding_active":true}` {
		t.Errorf("snapshot = %s", last.Snapshot)
	}
}

func TestLastState_EmptyEventsSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.auctionlog")
	w, err := auctionlog.Create(path, testHeader())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	w.Close()

	last, _, err := auctionlog.LastState(path)
	if err != nil {
		t.Fatalf("LastState: %v", err)
	}
	if last != nil {
		t.Errorf("last = %+v, want nil", last)
	}
}

func TestReadHistory_SkipsMalformedRowsWithWarnings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torn.auctionlog")
	w, err := auctionlog.Create(path, testHeader())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	good := auctionlog.Entry{Timestamp: time.Now(), Action: "INITIAL_SETUP", Snapshot: []byte(`{"bidding_active":false}`)}
	if err := w.Append(good); err != nil {
		t.Fatalf("Append: %v", err)
	}
	w.Close()

	// Simulate a crash mid-append: a truncated row and a row with torn JSON.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("2026-08-28 11:00:00.000,BID\n2026-08-28 11:00:01.000,BID: Alpha,\"{\"\"truncat\n"); err != nil {
		t.Fatalf("write torn rows: %v", err)
	}
	f.Close()

	history, warnings, err := auctionlog.ReadHistory(path)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d rows, want only the intact one: %+v", len(history), history)
	}
	if len(warnings) == 0 {
		t.Error("expected warnings for the torn rows")
	}

	last, _, err := auctionlog.LastState(path)
	if err != nil {
		t.Fatalf("LastState: %v", err)
	}
	if last == nil || last.Action != "INITIAL_SETUP" {
		t.Errorf("last = %+v, want the intact INITIAL_SETUP row", last)
	}
}

func TestReadSetup_MissingRostersIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.auctionlog")
	content := "[CONFIG]\n#AuctionName,Broken\n\n[TEAMS_INITIAL]\n#TeamName,TeamID,StartingMoney\n\n[AUCTION_STATES]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, _, err := auctionlog.ReadSetup(path)
	if !errors.Is(err, auctionlog.ErrLogFile) {
		t.Errorf("ReadSetup error = %v, want ErrLogFile", err)
	}
}

func TestReadSetup_MissingRulesFallsBackWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norules.auctionlog")
	content := "[CONFIG]\n#AuctionName,NoRules\n\n" +
		"[TEAMS_INITIAL]\n#TeamName,TeamID,StartingMoney\nAlpha,T1,1000\n\n" +
		"[PLAYERS_INITIAL]\n#PlayerName,PlayerID,BaseBid\nOne,P101,100\n\n" +
		"[AUCTION_STATES]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	setup, warnings, err := auctionlog.ReadSetup(path)
	if err != nil {
		t.Fatalf("ReadSetup: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning about missing rules")
	}
	if got := setup.Rules.IncrementFor(200); got != 25 {
		t.Errorf("IncrementFor(200) = %d, want default 25", got)
	}
}

func TestOpen_AppendsAfterResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.auctionlog")
	w, err := auctionlog.Create(path, testHeader())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Append(auctionlog.Entry{Timestamp: time.Now(), Action: "INITIAL_SETUP", Snapshot: []byte(`{}`)}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	w.Close()

	w2, err := auctionlog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w2.Append(auctionlog.Entry{Timestamp: time.Now(), Action: "LOAD_HISTORY", Snapshot: []byte(`{}`), Comment: "resumed"}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	w2.Close()

	history, _, err := auctionlog.ReadHistory(path)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(history) != 2 || history[1].Action != "LOAD_HISTORY" {
		t.Errorf("history = %+v", history)
	}
}
