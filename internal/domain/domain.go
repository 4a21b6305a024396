// Package domain holds the in-memory auction state: team budgets and
// inventories, and the item pool. Storage is arena-style, keyed by the
// stable IDs the registry assigned; display names never appear here.
package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInsufficientFunds indicates a debit that would drive a budget negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Team is one bidding team. Inventory maps item ID to price paid.
type Team struct {
	ID        string
	Money     int
	Inventory map[string]int
}

// Item is one auctionable player.
type Item struct {
	ID      string
	BaseBid int
}

// State is the mutable domain state for one auction. Mutators preserve the
// money and single-ownership invariants; the state machine must validate
// transitions before calling them.
type State struct {
	teams     map[string]*Team
	teamOrder []string

	items     map[string]*Item
	itemOrder []string

	available map[string]bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		teams:     make(map[string]*Team),
		items:     make(map[string]*Item),
		available: make(map[string]bool),
	}
}

// AddTeam registers a team with its starting budget. Setup-time only.
func (s *State) AddTeam(id string, money int) error {
	if _, dup := s.teams[id]; dup {
		return fmt.Errorf("team %s already present", id)
	}
	s.teams[id] = &Team{ID: id, Money: money, Inventory: make(map[string]int)}
	s.teamOrder = append(s.teamOrder, id)
	return nil
}

// AddItem registers an item and places it in the available pool.
func (s *State) AddItem(id string, baseBid int) error {
	if _, dup := s.items[id]; dup {
		return fmt.Errorf("item %s already present", id)
	}
	s.items[id] = &Item{ID: id, BaseBid: baseBid}
	s.itemOrder = append(s.itemOrder, id)
	s.available[id] = true
	return nil
}

// Team returns the team with the given ID, or nil.
func (s *State) Team(id string) *Team {
	return s.teams[id]
}

// Item returns the item with the given ID, or nil.
func (s *State) Item(id string) *Item {
	return s.items[id]
}

// Available reports whether the item is in the pool.
func (s *State) Available(id string) bool {
	return s.available[id]
}

// TakeFromPool removes an item from the available pool (it becomes the
// contested lot). Returns false if the item was not available.
func (s *State) TakeFromPool(id string) bool {
	if !s.available[id] {
		return false
	}
	delete(s.available, id)
	return true
}

// ReturnToPool puts a passed item back at its original base price.
func (s *State) ReturnToPool(id string) {
	if _, known := s.items[id]; known {
		s.available[id] = true
	}
}

// Award debits the winning team and records the item in its inventory at the
// price paid. The item must already be off the pool (contested). Fails with
// ErrInsufficientFunds before any mutation if the team cannot cover price.
func (s *State) Award(teamID, itemID string, price int) error {
	team, ok := s.teams[teamID]
	if !ok {
		return fmt.Errorf("unknown team %s", teamID)
	}
	if _, ok := s.items[itemID]; !ok {
		return fmt.Errorf("unknown item %s", itemID)
	}
	if team.Money < price {
		return fmt.Errorf("%w: team %s has %d, needs %d", ErrInsufficientFunds, teamID, team.Money, price)
	}
	team.Money -= price
	team.Inventory[itemID] = price
	delete(s.available, itemID)
	return nil
}

// SetTeamStatus force-sets a team's money and inventory. Used only when
// applying a snapshot on resume or time travel.
func (s *State) SetTeamStatus(teamID string, money int, inventory map[string]int) error {
	team, ok := s.teams[teamID]
	if !ok {
		return fmt.Errorf("unknown team %s", teamID)
	}
	team.Money = money
	team.Inventory = make(map[string]int, len(inventory))
	for id, price := range inventory {
		team.Inventory[id] = price
	}
	return nil
}

// RebuildPool recomputes the available pool as every known item not held in
// any inventory and not equal to contestedID. Used when applying a snapshot:
// passed items fall back to available because nothing owns them.
func (s *State) RebuildPool(contestedID string) {
	owned := make(map[string]bool)
	for _, team := range s.teams {
		for id := range team.Inventory {
			owned[id] = true
		}
	}
	s.available = make(map[string]bool)
	for id := range s.items {
		if !owned[id] && id != contestedID {
			s.available[id] = true
		}
	}
}

// TeamsInOrder returns teams in registration order.
func (s *State) TeamsInOrder() []*Team {
	out := make([]*Team, 0, len(s.teamOrder))
	for _, id := range s.teamOrder {
		out = append(out, s.teams[id])
	}
	return out
}

// AvailableItems returns pool items sorted by ID for stable display.
func (s *State) AvailableItems() []*Item {
	ids := make([]string, 0, len(s.available))
	for id := range s.available {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out
}

// TotalSpent sums the prices recorded across all inventories.
func (s *State) TotalSpent() int {
	total := 0
	for _, team := range s.teams {
		for _, price := range team.Inventory {
			total += price
		}
	}
	return total
}
