// Package rules implements the threshold-based bid increment schedule.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Rule maps a price threshold to the increment the next bid must add once
// the current price meets or exceeds that threshold.
type Rule struct {
	Threshold int
	Increment int
}

// Default is the built-in schedule used when no valid custom rules are given.
var Default = []Rule{
	{Threshold: 0, Increment: 1},
	{Threshold: 50, Increment: 5},
	{Threshold: 100, Increment: 10},
	{Threshold: 200, Increment: 25},
}

// Schedule is an ordered set of increment rules, kept sorted descending by
// threshold so the first rule a price meets is the one that applies.
type Schedule struct {
	rules []Rule
}

// DefaultSchedule returns a Schedule with the built-in rules.
func DefaultSchedule() Schedule {
	return mustSchedule(Default)
}

// NewSchedule builds a Schedule from the given rules. Rules with a negative
// threshold or a non-positive increment are skipped and reported as warnings.
// If no valid rule remains, the default schedule is used and a warning added.
func NewSchedule(in []Rule) (Schedule, []string) {
	var warnings []string
	var valid []Rule
	for _, r := range in {
		if r.Threshold < 0 || r.Increment <= 0 {
			warnings = append(warnings, fmt.Sprintf("invalid bid increment rule skipped: threshold=%d increment=%d", r.Threshold, r.Increment))
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		if len(in) > 0 {
			warnings = append(warnings, "no valid custom bid increment rules provided; using defaults")
		}
		return DefaultSchedule(), warnings
	}
	return mustSchedule(valid), warnings
}

func mustSchedule(rs []Rule) Schedule {
	sorted := make([]Rule, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold > sorted[j].Threshold })
	return Schedule{rules: sorted}
}

// IncrementFor returns the increment that applies at the given current price.
// Falls back to 1 when no rule matches.
func (s Schedule) IncrementFor(price int) int {
	for _, r := range s.rules {
		if price >= r.Threshold {
			return r.Increment
		}
	}
	return 1
}

// Rules returns the schedule's rules sorted descending by threshold.
func (s Schedule) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// MarshalJSON encodes the schedule as an array of [threshold, increment]
// pairs, the shape recorded in the log's #BidIncrementRules config line.
func (s Schedule) MarshalJSON() ([]byte, error) {
	pairs := make([][2]int, len(s.rules))
	for i, r := range s.rules {
		pairs[i] = [2]int{r.Threshold, r.Increment}
	}
	return json.Marshal(pairs)
}

// ParsePairs decodes a JSON array of [threshold, increment] pairs into rules.
// Malformed pairs are skipped and reported as warnings; a decode failure of
// the array itself is an error.
func ParsePairs(data []byte) ([]Rule, []string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decoding bid increment rules: %w", err)
	}
	var out []Rule
	var warnings []string
	for _, item := range raw {
		var pair [2]int
		if err := json.Unmarshal(item, &pair); err != nil {
			warnings = append(warnings, fmt.Sprintf("malformed bid increment rule entry skipped: %s", item))
			continue
		}
		out = append(out, Rule{Threshold: pair[0], Increment: pair[1]})
	}
	return out, warnings, nil
}
