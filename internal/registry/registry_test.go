package registry_test

import (
	"errors"
	"testing"

	"github.com/jensholdgaard/auction-block/internal/registry"
)

func TestNew_AssignsStableIDsInOrder(t *testing.T) {
	r, err := registry.New([]string{"Alpha", "Bravo"}, []string{"One", "Two", "Three"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wantTeams := []string{"T1", "T2"}
	for i, id := range r.TeamIDs() {
		if id != wantTeams[i] {
			t.Errorf("team ID[%d] = %q, want %q", i, id, wantTeams[i])
		}
	}
	wantPlayers := []string{"P101", "P102", "P103"}
	for i, id := range r.PlayerIDs() {
		if id != wantPlayers[i] {
			t.Errorf("player ID[%d] = %q, want %q", i, id, wantPlayers[i])
		}
	}

	if id, ok := r.TeamID("Bravo"); !ok || id != "T2" {
		t.Errorf("TeamID(Bravo) = %q,%v", id, ok)
	}
	if name, ok := r.PlayerName("P103"); !ok || name != "Three" {
		t.Errorf("PlayerName(P103) = %q,%v", name, ok)
	}
	if _, ok := r.TeamID("Nobody"); ok {
		t.Error("TeamID(Nobody) should not resolve")
	}
}

func TestNew_RejectsBadRosters(t *testing.T) {
	tests := []struct {
		name    string
		teams   []string
		players []string
	}{
		{"empty team name", []string{"Alpha", "  "}, []string{"One"}},
		{"duplicate team name", []string{"Alpha", "Alpha"}, []string{"One"}},
		{"team name reads as log comment", []string{"#1 Fans"}, []string{"One"}},
		{"empty player name", []string{"Alpha"}, []string{""}},
		{"player name reads as log comment", []string{"Alpha"}, []string{"#One"}},
		{"duplicate player name", []string{"Alpha"}, []string{"One", "One"}},
		{"no teams", nil, []string{"One"}},
		{"no players", []string{"Alpha"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.New(tt.teams, tt.players)
			if !errors.Is(err, registry.ErrInitialization) {
				t.Errorf("New() error = %v, want ErrInitialization", err)
			}
		})
	}
}

func TestFromRecorded_KeepsVerbatimIDs(t *testing.T) {
	r, err := registry.FromRecorded(
		[]registry.Pair{{Name: "Alpha", ID: "T7"}},
		[]registry.Pair{{Name: "One", ID: "P900"}},
	)
	if err != nil {
		t.Fatalf("FromRecorded: %v", err)
	}
	if id, _ := r.TeamID("Alpha"); id != "T7" {
		t.Errorf("TeamID(Alpha) = %q, want T7", id)
	}
	if id, _ := r.PlayerID("One"); id != "P900" {
		t.Errorf("PlayerID(One) = %q, want P900", id)
	}
}

func TestFromRecorded_RejectsDuplicateIDs(t *testing.T) {
	_, err := registry.FromRecorded(
		[]registry.Pair{{Name: "Alpha", ID: "T1"}, {Name: "Bravo", ID: "T1"}},
		[]registry.Pair{{Name: "One", ID: "P101"}},
	)
	if !errors.Is(err, registry.ErrInitialization) {
		t.Errorf("error = %v, want ErrInitialization", err)
	}
}
