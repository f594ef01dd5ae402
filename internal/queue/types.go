package queue

import "time"

// Status represents a queue entry lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusMatched Status = "matched"
)

// Profile is the caller-supplied player data at enqueue time.
type Profile struct {
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating"`
	TeamID      string `json:"team_id,omitempty"`
}

// Entry is stored as JSON in Redis under mm:entry:<userId>.
// 한 유저당 엔트리 1개: 키가 userId라서 재등록은 덮어쓰기가 된다.
type Entry struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Rating      int       `json:"rating"`
	TeamID      string    `json:"team_id,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
	Status      Status    `json:"status"`
	MatchID     string    `json:"match_id,omitempty"`
}

// Errors
var (
	ErrInvalidArgs = errf("invalid arguments")
	ErrNotQueued   = errf("user not in queue")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
