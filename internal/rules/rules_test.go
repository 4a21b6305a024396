package rules_test

import (
	"encoding/json"
	"testing"

	"github.com/jensholdgaard/auction-block/internal/rules"
)

func TestIncrementFor(t *testing.T) {
	s := rules.DefaultSchedule()

	tests := []struct {
		name  string
		price int
		want  int
	}{
		{"below first threshold", 10, 1},
		{"exactly 50 uses the 50 rule", 50, 5},
		{"just under 100", 99, 5},
		{"exactly 100", 100, 10},
		{"between 100 and 200", 150, 10},
		{"exactly 200 uses the 200 rule", 200, 25},
		{"far above all thresholds", 5000, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IncrementFor(tt.price); got != tt.want {
				t.Errorf("IncrementFor(%d) = %d, want %d", tt.price, got, tt.want)
			}
		})
	}
}

func TestNewSchedule_SkipsInvalidRules(t *testing.T) {
	s, warnings := rules.NewSchedule([]rules.Rule{
		{Threshold: 0, Increment: 2},
		{Threshold: -5, Increment: 10},
		{Threshold: 100, Increment: 0},
		{Threshold: 100, Increment: 20},
	})
	if len(warnings) != 2 {
		t.Fatalf("warnings = %d, want 2: %v", len(warnings), warnings)
	}
	if got := s.IncrementFor(100); got != 20 {
		t.Errorf("IncrementFor(100) = %d, want 20", got)
	}
	if got := s.IncrementFor(5); got != 2 {
		t.Errorf("IncrementFor(5) = %d, want 2", got)
	}
}

func TestNewSchedule_AllInvalidFallsBackToDefault(t *testing.T) {
	s, warnings := rules.NewSchedule([]rules.Rule{{Threshold: -1, Increment: -1}})
	if len(warnings) != 2 { // one skip + one fallback notice
		t.Fatalf("warnings = %d, want 2: %v", len(warnings), warnings)
	}
	if got := s.IncrementFor(200); got != 25 {
		t.Errorf("IncrementFor(200) = %d, want default 25", got)
	}
}

func TestNewSchedule_EmptyUsesDefaultWithoutWarning(t *testing.T) {
	s, warnings := rules.NewSchedule(nil)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if got := s.IncrementFor(60); got != 5 {
		t.Errorf("IncrementFor(60) = %d, want 5", got)
	}
}

func TestSchedule_JSONRoundTrip(t *testing.T) {
	s, _ := rules.NewSchedule([]rules.Rule{
		{Threshold: 0, Increment: 10},
		{Threshold: 500, Increment: 50},
	})
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[[500,50],[0,10]]" {
		t.Errorf("marshal = %s, want [[500,50],[0,10]]", data)
	}

	parsed, warnings, err := rules.ParsePairs(data)
	if err != nil {
		t.Fatalf("ParsePairs: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if len(parsed) != 2 || parsed[0].Threshold != 500 || parsed[1].Increment != 10 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestParsePairs_MalformedEntries(t *testing.T) {
	parsed, warnings, err := rules.ParsePairs([]byte(`[[0,1],"bogus",[50,5]]`))
	if err != nil {
		t.Fatalf("ParsePairs: %v", err)
	}
	if len(parsed) != 2 {
		t.Errorf("parsed = %d rules, want 2", len(parsed))
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want 1", warnings)
	}

	if _, _, err := rules.ParsePairs([]byte(`not json`)); err == nil {
		t.Error("expected error for undecodable array")
	}
}
