package auctionlog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jensholdgaard/auction-block/internal/rules"
)

// Setup is the re-derived initial state from a log's header sections.
type Setup struct {
	AuctionName string
	Rules       rules.Schedule
	Teams       []TeamRow
	Players     []PlayerRow
}

// HistoryRow is one parsed [AUCTION_STATES] row. Serial is 1-based in file
// order and identifies the row for time travel.
type HistoryRow struct {
	Serial    int
	Timestamp time.Time
	RawTime   string
	Action    string
	Snapshot  []byte
	Comment   string
}

// ReadSetup parses the header sections of an existing log. The rosters must
// fully parse (resume is impossible without identity), so missing or wholly
// invalid team/player data is fatal; individually malformed rows and config
// lines are skipped with warnings.
func ReadSetup(path string) (*Setup, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %v", ErrLogFile, path, err)
	}
	defer f.Close()

	setup := &Setup{AuctionName: "Untitled Auction"}
	var warnings []string
	rulesSeen := false
	rulesSet := false

	section := ""
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			section = trimmed
			if section == sectionAuctionStates {
				break
			}
			continue
		}

		switch section {
		case sectionConfig:
			if !strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, ",") {
				continue
			}
			key, value, _ := strings.Cut(trimmed[1:], ",")
			switch strings.TrimSpace(key) {
			case keyAuctionName:
				setup.AuctionName = strings.TrimSpace(value)
			case keyBidIncrementRules:
				rulesSeen = true
				parsed, ruleWarnings, parseErr := rules.ParsePairs([]byte(value))
				warnings = append(warnings, ruleWarnings...)
				if parseErr != nil {
					warnings = append(warnings, fmt.Sprintf("line %d: bad BidIncrementRules value, using defaults: %v", lineNo, parseErr))
					continue
				}
				sched, schedWarnings := rules.NewSchedule(parsed)
				warnings = append(warnings, schedWarnings...)
				setup.Rules = sched
				rulesSet = true
			}

		case sectionTeamsInitial:
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			fields, rowErr := parseLine(line)
			if rowErr != nil || len(fields) < 3 {
				warnings = append(warnings, fmt.Sprintf("line %d: malformed team row skipped", lineNo))
				continue
			}
			name, id := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
			money, convErr := strconv.Atoi(strings.TrimSpace(fields[2]))
			if name == "" || id == "" || convErr != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: invalid team row skipped", lineNo))
				continue
			}
			setup.Teams = append(setup.Teams, TeamRow{Name: name, ID: id, Money: money})

		case sectionPlayersInitial:
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			fields, rowErr := parseLine(line)
			if rowErr != nil || len(fields) < 3 {
				warnings = append(warnings, fmt.Sprintf("line %d: malformed player row skipped", lineNo))
				continue
			}
			name, id := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
			baseBid, convErr := strconv.Atoi(strings.TrimSpace(fields[2]))
			if name == "" || id == "" || convErr != nil {
				warnings = append(warnings, fmt.Sprintf("line %d: invalid player row skipped", lineNo))
				continue
			}
			setup.Players = append(setup.Players, PlayerRow{Name: name, ID: id, BaseBid: baseBid})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("%w: reading %s: %v", ErrLogFile, path, err)
	}

	if !rulesSeen {
		warnings = append(warnings, "no BidIncrementRules in log config; using defaults")
	}
	if !rulesSet {
		setup.Rules = rules.DefaultSchedule()
	}
	if len(setup.Teams) == 0 {
		return nil, warnings, fmt.Errorf("%w: no valid initial team data in log", ErrLogFile)
	}
	if len(setup.Players) == 0 {
		return nil, warnings, fmt.Errorf("%w: no valid initial player data in log", ErrLogFile)
	}
	return setup, warnings, nil
}

// ReadHistory parses every [AUCTION_STATES] row. Malformed rows are skipped
// with warnings rather than aborting: a half-written trailing row after a
// crash must not make the rest of the history unreadable.
func ReadHistory(path string) ([]HistoryRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %v", ErrLogFile, path, err)
	}
	defer f.Close()

	var (
		out      []HistoryRow
		warnings []string
		inStates bool
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNo := 0
	serial := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			inStates = trimmed == sectionAuctionStates
			continue
		}
		if !inStates || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields, rowErr := parseLine(line)
		if rowErr != nil || len(fields) < 3 {
			warnings = append(warnings, fmt.Sprintf("line %d: malformed state row skipped", lineNo))
			continue
		}
		snapshotJSON := []byte(fields[2])
		if !json.Valid(snapshotJSON) {
			warnings = append(warnings, fmt.Sprintf("line %d: state row with invalid snapshot JSON skipped", lineNo))
			continue
		}

		serial++
		row := HistoryRow{
			Serial:   serial,
			RawTime:  fields[0],
			Action:   fields[1],
			Snapshot: snapshotJSON,
		}
		if len(fields) > 3 {
			row.Comment = fields[3]
		}
		if ts, tsErr := time.ParseInLocation(timestampLayout, fields[0], time.Local); tsErr == nil {
			row.Timestamp = ts
		} else {
			warnings = append(warnings, fmt.Sprintf("line %d: unparseable timestamp %q", lineNo, fields[0]))
		}
		out = append(out, row)
	}
	if err := scanner.Err(); err != nil {
		return out, warnings, fmt.Errorf("%w: reading %s: %v", ErrLogFile, path, err)
	}
	return out, warnings, nil
}

// LastState returns the most recent valid state row, or nil if the events
// section is empty (a freshly created log that only wrote its header).
func LastState(path string) (*HistoryRow, []string, error) {
	history, warnings, err := ReadHistory(path)
	if err != nil {
		return nil, warnings, err
	}
	if len(history) == 0 {
		return nil, warnings, nil
	}
	last := history[len(history)-1]
	return &last, warnings, nil
}

// parseLine parses a single physical line as one CSV record.
func parseLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}
