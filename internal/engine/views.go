package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jensholdgaard/auction-block/internal/domain"
)

// OwnedItem is one purchase in a team's inventory view.
type OwnedItem struct {
	PlayerName string
	Price      int
}

// TeamView is the display projection of one team.
type TeamView struct {
	Name         string
	Money        int
	MoneyDisplay string
	Inventory    []OwnedItem
}

// ItemView is the display projection of one pool item.
type ItemView struct {
	Name    string
	BaseBid int
}

// RoundView is the display projection of the contested item.
type RoundView struct {
	ItemName   string
	BaseBid    int
	CurrentBid int
	LeaderName string
	Bids       int
	StatusText string
}

// AllTeamsView returns every team with formatted money and inventory, sorted
// by team name.
func (e *Engine) AllTeamsView() []TeamView {
	out := make([]TeamView, 0, len(e.reg.TeamIDs()))
	for _, team := range e.state.TeamsInOrder() {
		name, _ := e.reg.TeamName(team.ID)
		inventory := make([]OwnedItem, 0, len(team.Inventory))
		for itemID, price := range team.Inventory {
			playerName, ok := e.reg.PlayerName(itemID)
			if !ok {
				playerName = itemID
			}
			inventory = append(inventory, OwnedItem{PlayerName: playerName, Price: price})
		}
		sort.Slice(inventory, func(i, j int) bool { return inventory[i].PlayerName < inventory[j].PlayerName })
		out = append(out, TeamView{
			Name:         name,
			Money:        team.Money,
			MoneyDisplay: domain.FormatMoney(team.Money),
			Inventory:    inventory,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AvailableItemsView returns the pool sorted by player name.
func (e *Engine) AvailableItemsView() []ItemView {
	out := make([]ItemView, 0)
	for _, item := range e.state.AvailableItems() {
		name, ok := e.reg.PlayerName(item.ID)
		if !ok {
			name = item.ID
		}
		out = append(out, ItemView{Name: name, BaseBid: item.BaseBid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CurrentRoundView returns the contested item's display state, or nil when
// the engine is idle.
func (e *Engine) CurrentRoundView() *RoundView {
	if e.rnd == nil {
		return nil
	}
	itemName, _ := e.reg.PlayerName(e.rnd.itemID)
	v := &RoundView{
		ItemName:   itemName,
		BaseBid:    e.rnd.baseBid,
		CurrentBid: e.rnd.currentBid,
		Bids:       e.rnd.bids(),
	}
	if e.rnd.leaderID == "" {
		v.StatusText = fmt.Sprintf("OPENING AT %s", domain.FormatMoney(e.rnd.currentBid))
	} else {
		v.LeaderName, _ = e.reg.TeamName(e.rnd.leaderID)
		v.StatusText = fmt.Sprintf("%s by %s", domain.FormatMoney(e.rnd.currentBid), strings.ToUpper(v.LeaderName))
	}
	return v
}

// Summary returns a one-line money conservation check for the session:
// remaining budgets plus recorded spending.
func (e *Engine) Summary() string {
	remaining := 0
	for _, team := range e.state.TeamsInOrder() {
		remaining += team.Money
	}
	spent := e.state.TotalSpent()
	return fmt.Sprintf("%s remaining across teams, %s spent", domain.FormatMoney(remaining), domain.FormatMoney(spent))
}
