package engine

import "github.com/jensholdgaard/auction-block/internal/snapshot"

// bidEntry is one entry in a round's bid history. An empty teamID marks the
// seed entry that opens the round at the base price.
type bidEntry struct {
	teamID string
	amount int
}

// round is the mutable record of the one item currently on the block.
// Created on selection, discarded on sell or pass.
type round struct {
	itemID     string
	baseBid    int
	currentBid int
	leaderID   string
	history    []bidEntry
}

func newRound(itemID string, baseBid int) *round {
	return &round{
		itemID:     itemID,
		baseBid:    baseBid,
		currentBid: baseBid,
		history:    []bidEntry{{teamID: "", amount: baseBid}},
	}
}

// bids reports how many real bids (beyond the seed entry) have been placed.
func (r *round) bids() int {
	return len(r.history) - 1
}

func (r *round) placeBid(teamID string, amount int) {
	r.currentBid = amount
	r.leaderID = teamID
	r.history = append(r.history, bidEntry{teamID: teamID, amount: amount})
}

// undo pops the last real bid and restores price and leader from the entry
// before it. The caller must check bids() > 0 first.
func (r *round) undo() (undoneTeamID string) {
	last := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	prev := r.history[len(r.history)-1]
	r.currentBid = prev.amount
	r.leaderID = prev.teamID
	return last.teamID
}

// toSnapshot converts the round to its wire form.
func (r *round) toSnapshot() *snapshot.Round {
	if r == nil {
		return nil
	}
	history := make([]snapshot.HistoryEntry, len(r.history))
	for i, b := range r.history {
		history[i] = snapshot.HistoryEntry{BidderTeamID: optionalID(b.teamID), Amount: b.amount}
	}
	return &snapshot.Round{
		PlayerID:            r.itemID,
		BaseBid:             r.baseBid,
		CurrentBidAmount:    r.currentBid,
		HighestBidderTeamID: optionalID(r.leaderID),
		BiddingHistory:      history,
	}
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func idOrEmpty(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
