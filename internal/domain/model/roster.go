// Package model contains domain models passed between layers.
package model

import "time"

// Venue is the kind of court a team plays on. It decides which zone
// vocabulary makes sense but is not enforced anywhere.
type Venue string

// Known venues.
const (
	VenueIndoor Venue = "indoor"
	VenueBeach  Venue = "beach"
)

// Player is a roster member who can be credited with passes.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Position string `json:"position,omitempty"`
	Active   bool   `json:"active"`
}

// Team owns its players and carries the default favorable threshold.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Players   []Player  `json:"players"`
	Threshold int       `json:"threshold"`
	Venue     Venue     `json:"venue,omitempty"`
}

// Player looks a player up by id.
func (t Team) Player(id string) (Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Clone returns a copy that shares no slices with t.
func (t Team) Clone() Team {
	out := t
	out.Players = append([]Player(nil), t.Players...)
	return out
}
