package simengine

import (
    "context"
    "encoding/json"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// SessionStore keeps opaque simulation state blobs keyed by session id with a
// fixed TTL. Every save refreshes the TTL; expiry is Redis's job, not a pile
// of per-session timers.
type SessionStore struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
    if ttl <= 0 { ttl = time.Hour }
    return &SessionStore{rdb: rdb, ttl: ttl}
}

func keySession(id string) string { return "sim:session:" + strings.TrimSpace(id) }

// Create stores a fresh state blob under a new session id.
func (s *SessionStore) Create(ctx context.Context, state json.RawMessage) (string, error) {
    id := uuid.NewString()
    if err := s.rdb.Set(ctx, keySession(id), []byte(state), s.ttl).Err(); err != nil {
        return "", err
    }
    return id, nil
}

// Save replaces the session's state and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, id string, state json.RawMessage) error {
    if strings.TrimSpace(id) == "" { return ErrSessionNotFound }
    return s.rdb.Set(ctx, keySession(id), []byte(state), s.ttl).Err()
}

// Load returns the session's state blob, or ErrSessionNotFound after expiry.
func (s *SessionStore) Load(ctx context.Context, id string) (json.RawMessage, error) {
    raw, err := s.rdb.Get(ctx, keySession(id)).Bytes()
    if err == redis.Nil { return nil, ErrSessionNotFound }
    if err != nil { return nil, err }
    return json.RawMessage(raw), nil
}

// Delete evicts a session explicitly.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
    return s.rdb.Del(ctx, keySession(id)).Err()
}

// Errors
var ErrSessionNotFound = errf("session not found or expired")

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
