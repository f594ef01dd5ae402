package matchdto

import "encoding/json"

// Queue

type JoinQueueRequest struct {
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating,omitempty"`
	TeamID      string `json:"team_id,omitempty"`
}

type JoinQueueResponse struct {
	UserID   string `json:"user_id"`
	Rating   int    `json:"rating"`
	JoinedAt string `json:"joined_at"`
	Status   string `json:"status"`
}

// Match lifecycle RPCs

type MatchIDRequest struct {
	MatchID string `json:"match_id"`
}

type CompleteMatchRequest struct {
	MatchID  string `json:"match_id"`
	WinnerID string `json:"winner_id"`
}

type CompleteMatchResponse struct {
	Success      bool           `json:"success"`
	Winner       string         `json:"winner"`
	FinalRatings map[string]int `json:"final_ratings"`
}

type ValidateGameStateRequest struct {
	MatchID   string          `json:"match_id"`
	GameState json.RawMessage `json:"game_state"`
}

type ValidateGameStateResponse struct {
	Valid bool `json:"valid"`
}

// Simulation sessions

type InitGameRequest struct {
	Team1       json.RawMessage `json:"team1"`
	Team2       json.RawMessage `json:"team2"`
	PitchConfig json.RawMessage `json:"pitchConfig,omitempty"`
}

type GameSessionResponse struct {
	SessionID  string          `json:"session_id"`
	MatchState json.RawMessage `json:"matchState"`
}

type SessionIDRequest struct {
	SessionID string `json:"session_id"`
}
