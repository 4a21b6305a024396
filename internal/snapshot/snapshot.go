// Package snapshot defines the self-describing state serialization written
// with every log row. The JSON field names and shapes are frozen: existing
// .auctionlog files must stay loadable, so changes here are wire changes.
package snapshot

import "encoding/json"

// TeamStatus is one team's money and holdings, keyed by stable IDs.
type TeamStatus struct {
	Money     int            `json:"money"`
	Inventory map[string]int `json:"inventory"`
}

// PoolItem is an item still open for selection.
type PoolItem struct {
	ID      string `json:"id"`
	BaseBid int    `json:"base_bid"`
}

// HistoryEntry is one bid in the active round. BidderTeamID is nil for the
// seed entry that opens the round at the base price.
type HistoryEntry struct {
	BidderTeamID *string `json:"bidder_team_id"`
	Amount       int     `json:"amount"`
}

// Round captures the contested item. A nil *Round in Snapshot means no item
// is on the block.
type Round struct {
	PlayerID            string         `json:"player_id"`
	BaseBid             int            `json:"base_bid"`
	CurrentBidAmount    int            `json:"current_bid_amount"`
	HighestBidderTeamID *string        `json:"highest_bidder_team_id"`
	BiddingHistory      []HistoryEntry `json:"bidding_history_for_item"`
}

// Snapshot is the full auction state at one committed transition. The latest
// snapshot in a log is authoritative; earlier ones exist only for history.
type Snapshot struct {
	TeamsStatus          map[string]TeamStatus `json:"teams_status"`
	AvailablePlayersPool []PoolItem            `json:"available_players_pool"`
	CurrentRound         *Round                `json:"current_bidding_round_item"`
	BiddingActive        bool                  `json:"bidding_active"`
}

// Marshal encodes the snapshot for a log row.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Parse decodes a log row's snapshot column.
func Parse(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}
