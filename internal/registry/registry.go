// Package registry assigns and resolves the stable IDs that key every log
// entry and snapshot. Display names are for humans; IDs are the durable keys,
// so two auctions reusing a name never collide in their logs.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInitialization indicates malformed roster data at auction creation.
var ErrInitialization = errors.New("invalid auction setup")

// Registry holds immutable name↔ID mappings for one auction. It is built
// once at setup (or re-derived from a log header) and never mutated after.
type Registry struct {
	teamIDByName   map[string]string
	teamNameByID   map[string]string
	playerIDByName map[string]string
	playerNameByID map[string]string

	teamIDs   []string
	playerIDs []string
}

// New assigns IDs to teams and players deterministically in input order:
// teams get T1, T2, …; players get P101, P102, … (the numbering scheme the
// log format has always used).
func New(teamNames, playerNames []string) (*Registry, error) {
	r := empty()
	for i, name := range teamNames {
		id := fmt.Sprintf("T%d", i+1)
		if err := r.addTeam(name, id); err != nil {
			return nil, err
		}
	}
	for i, name := range playerNames {
		id := fmt.Sprintf("P%d", 101+i)
		if err := r.addPlayer(name, id); err != nil {
			return nil, err
		}
	}
	if len(r.teamIDs) == 0 {
		return nil, fmt.Errorf("%w: no teams provided", ErrInitialization)
	}
	if len(r.playerIDs) == 0 {
		return nil, fmt.Errorf("%w: no players provided", ErrInitialization)
	}
	return r, nil
}

// Pair is a recorded (name, ID) assignment from a log header.
type Pair struct {
	Name string
	ID   string
}

// FromRecorded rebuilds a registry from the assignments a log header recorded.
// IDs are taken verbatim, never reassigned, so resumed auctions keep the
// exact identity their history was written with.
func FromRecorded(teams, players []Pair) (*Registry, error) {
	r := empty()
	for _, p := range teams {
		if err := r.addTeam(p.Name, p.ID); err != nil {
			return nil, err
		}
	}
	for _, p := range players {
		if err := r.addPlayer(p.Name, p.ID); err != nil {
			return nil, err
		}
	}
	if len(r.teamIDs) == 0 || len(r.playerIDs) == 0 {
		return nil, fmt.Errorf("%w: recorded setup is missing teams or players", ErrInitialization)
	}
	return r, nil
}

func empty() *Registry {
	return &Registry{
		teamIDByName:   make(map[string]string),
		teamNameByID:   make(map[string]string),
		playerIDByName: make(map[string]string),
		playerNameByID: make(map[string]string),
	}
}

func (r *Registry) addTeam(name, id string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: team name cannot be empty", ErrInitialization)
	}
	// A leading '#' would make the roster row unreadable as data: the log
	// reader treats such lines as column-header comments.
	if strings.HasPrefix(name, "#") {
		return fmt.Errorf("%w: team name %q cannot start with '#'", ErrInitialization, name)
	}
	if id == "" {
		return fmt.Errorf("%w: team %q has an empty ID", ErrInitialization, name)
	}
	if _, dup := r.teamIDByName[name]; dup {
		return fmt.Errorf("%w: duplicate team name %q", ErrInitialization, name)
	}
	if _, dup := r.teamNameByID[id]; dup {
		return fmt.Errorf("%w: duplicate team ID %q", ErrInitialization, id)
	}
	r.teamIDByName[name] = id
	r.teamNameByID[id] = name
	r.teamIDs = append(r.teamIDs, id)
	return nil
}

func (r *Registry) addPlayer(name, id string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: player name cannot be empty", ErrInitialization)
	}
	if strings.HasPrefix(name, "#") {
		return fmt.Errorf("%w: player name %q cannot start with '#'", ErrInitialization, name)
	}
	if id == "" {
		return fmt.Errorf("%w: player %q has an empty ID", ErrInitialization, name)
	}
	if _, dup := r.playerIDByName[name]; dup {
		return fmt.Errorf("%w: duplicate player name %q", ErrInitialization, name)
	}
	if _, dup := r.playerNameByID[id]; dup {
		return fmt.Errorf("%w: duplicate player ID %q", ErrInitialization, id)
	}
	r.playerIDByName[name] = id
	r.playerNameByID[id] = name
	r.playerIDs = append(r.playerIDs, id)
	return nil
}

// TeamID resolves a team name to its ID.
func (r *Registry) TeamID(name string) (string, bool) {
	id, ok := r.teamIDByName[strings.TrimSpace(name)]
	return id, ok
}

// TeamName resolves a team ID to its display name.
func (r *Registry) TeamName(id string) (string, bool) {
	name, ok := r.teamNameByID[id]
	return name, ok
}

// PlayerID resolves a player name to its ID.
func (r *Registry) PlayerID(name string) (string, bool) {
	id, ok := r.playerIDByName[strings.TrimSpace(name)]
	return id, ok
}

// PlayerName resolves a player ID to its display name.
func (r *Registry) PlayerName(id string) (string, bool) {
	name, ok := r.playerNameByID[id]
	return name, ok
}

// TeamIDs returns team IDs in assignment order.
func (r *Registry) TeamIDs() []string {
	out := make([]string, len(r.teamIDs))
	copy(out, r.teamIDs)
	return out
}

// PlayerIDs returns player IDs in assignment order.
func (r *Registry) PlayerIDs() []string {
	out := make([]string, len(r.playerIDs))
	copy(out, r.playerIDs)
	return out
}
