package snapshot_test

import (
	"strings"
	"testing"

	"github.com/jensholdgaard/auction-block/internal/snapshot"
)

func TestMarshal_IdleRoundIsNull(t *testing.T) {
	s := snapshot.Snapshot{
		TeamsStatus: map[string]snapshot.TeamStatus{
			"T1": {Money: 900, Inventory: map[string]int{"P101": 100}},
		},
		AvailablePlayersPool: []snapshot.PoolItem{{ID: "P102", BaseBid: 80}},
		CurrentRound:         nil,
		BiddingActive:        false,
	}
	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"current_bidding_round_item":null`) {
		t.Errorf("idle round must serialize as null, got %s", got)
	}
	for _, key := range []string{`"teams_status"`, `"available_players_pool"`, `"bidding_active"`, `"money"`, `"inventory"`, `"base_bid"`} {
		if !strings.Contains(got, key) {
			t.Errorf("missing wire key %s in %s", key, got)
		}
	}
}

func TestParse_ContestedRound(t *testing.T) {
	raw := `{
		"teams_status": {"T1": {"money": 1000, "inventory": {}}},
		"available_players_pool": [],
		"current_bidding_round_item": {
			"player_id": "P101",
			"base_bid": 100,
			"current_bid_amount": 110,
			"highest_bidder_team_id": "T1",
			"bidding_history_for_item": [
				{"bidder_team_id": null, "amount": 100},
				{"bidder_team_id": "T1", "amount": 110}
			]
		},
		"bidding_active": true
	}`
	s, err := snapshot.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.CurrentRound == nil {
		t.Fatal("expected a contested round")
	}
	if s.CurrentRound.PlayerID != "P101" || s.CurrentRound.CurrentBidAmount != 110 {
		t.Errorf("round = %+v", s.CurrentRound)
	}
	if s.CurrentRound.HighestBidderTeamID == nil || *s.CurrentRound.HighestBidderTeamID != "T1" {
		t.Errorf("leader = %v, want T1", s.CurrentRound.HighestBidderTeamID)
	}
	if len(s.CurrentRound.BiddingHistory) != 2 || s.CurrentRound.BiddingHistory[0].BidderTeamID != nil {
		t.Errorf("history = %+v", s.CurrentRound.BiddingHistory)
	}
	if !s.BiddingActive {
		t.Error("bidding_active should be true")
	}
}
