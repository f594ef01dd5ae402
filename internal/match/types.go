package match

import (
	"time"
)

// Status represents a match lifecycle state.
// waiting → starting → active → completed. completed is terminal; forfeiture
// is a completion path out of active.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusStarting  Status = "starting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// PauseReasonDisconnect marks a match paused because a player dropped.
const PauseReasonDisconnect = "player_disconnected"

// Player is one side of a head-to-head match.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating"`
	TeamID      string `json:"team_id,omitempty"`
	Ready       bool   `json:"ready"`
}

// Score is the running scoreline.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Position is a player position on the pitch in field coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Presence tracks one participant's connection state inside the game state.
type Presence struct {
	Connected      bool       `json:"connected"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
	ReconnectedAt  *time.Time `json:"reconnected_at,omitempty"`
}

// GameState is the live state both clients write into during play.
type GameState struct {
	Score       Score                `json:"score"`
	Time        int                  `json:"time"`
	Period      int                  `json:"period"`
	Paused      bool                 `json:"paused"`
	PauseReason string               `json:"pause_reason,omitempty"`
	Players     map[string]*Presence `json:"players"`
	Positions   map[string]Position  `json:"positions,omitempty"`
	Lineups     map[string][]string  `json:"lineups,omitempty"`
}

// Match is the persisted shared document of one head-to-head game.
type Match struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Players      [2]Player      `json:"players"`
	Status       Status         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Winner       string         `json:"winner,omitempty"`
	FinalRatings map[string]int `json:"final_ratings,omitempty"`
	Forfeited    bool           `json:"forfeited,omitempty"`
	ForfeitedBy  string         `json:"forfeited_by,omitempty"`
	GameState    GameState      `json:"game_state"`
}

// IsParticipant reports whether the user is one of the two players.
func (m *Match) IsParticipant(userID string) bool {
	return m.Players[0].ID == userID || m.Players[1].ID == userID
}

// PlayerByID returns the player record for the user, or nil.
func (m *Match) PlayerByID(userID string) *Player {
	if m.Players[0].ID == userID {
		return &m.Players[0]
	}
	if m.Players[1].ID == userID {
		return &m.Players[1]
	}
	return nil
}

// OpponentOf returns the other player's record, or nil when the user is not
// a participant.
func (m *Match) OpponentOf(userID string) *Player {
	if m.Players[0].ID == userID {
		return &m.Players[1]
	}
	if m.Players[1].ID == userID {
		return &m.Players[0]
	}
	return nil
}

// Errors
var (
	ErrInvalidArgs     = errf("invalid arguments")
	ErrUnauthenticated = errf("caller not authenticated")
	ErrNotFound        = errf("match not found")
	ErrNotParticipant  = errf("caller is not a match participant")
	ErrNotActive       = errf("match is not active")
	ErrBadTransition   = errf("invalid status transition")
	ErrInvalidWinner   = errf("winner is not a match participant")
	ErrScoreNegative   = errf("score must be non-negative")
	ErrTimeOutOfRange  = errf("time must be within 0..5400 seconds")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
