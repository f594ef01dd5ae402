package queue

import (
    "context"
    "encoding/json"
    "sort"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/park285/kickoff-server/internal/obslog"
    "go.uber.org/zap"
)

// Store is the persistent matchmaking waiting list.
type Store struct {
    rdb           *redis.Client
    maxWait       time.Duration
    matchedGrace  time.Duration
    defaultRating int
}

func NewStore(rdb *redis.Client, maxWait, matchedGrace time.Duration, defaultRating int) *Store {
    if maxWait <= 0 { maxWait = 5 * time.Minute }
    if matchedGrace <= 0 { matchedGrace = 30 * time.Second }
    if defaultRating <= 0 { defaultRating = 1200 }
    return &Store{rdb: rdb, maxWait: maxWait, matchedGrace: matchedGrace, defaultRating: defaultRating}
}

func keyEntry(userID string) string { return "mm:entry:" + strings.TrimSpace(userID) }
func keyIndex() string              { return "mm:index" }

// Enqueue registers a user in the waiting list. Re-enqueue overwrites the
// previous entry for the same user (latest profile wins).
func (s *Store) Enqueue(ctx context.Context, userID string, p Profile) (*Entry, error) {
    userID = strings.TrimSpace(userID)
    if userID == "" { return nil, ErrInvalidArgs }
    rating := p.Rating
    if rating <= 0 { rating = s.defaultRating }
    e := &Entry{
        UserID:      userID,
        DisplayName: strings.TrimSpace(p.DisplayName),
        Rating:      rating,
        TeamID:      strings.TrimSpace(p.TeamID),
        JoinedAt:    time.Now().UTC(),
        Status:      StatusWaiting,
    }
    raw, err := json.Marshal(e)
    if err != nil { return nil, err }
    // 안전망 TTL: 스윕이 놓쳐도 엔트리가 영구히 남지 않도록
    if err := s.rdb.Set(ctx, keyEntry(userID), raw, 2*s.maxWait).Err(); err != nil { return nil, err }
    if err := s.rdb.SAdd(ctx, keyIndex(), userID).Err(); err != nil { return nil, err }
    obslog.L().Info("queue_enqueue",
        zap.String("user_id", userID),
        zap.Int("rating", e.Rating),
    )
    return e, nil
}

// Dequeue removes a user's entry, matched or not.
func (s *Store) Dequeue(ctx context.Context, userID string) error {
    userID = strings.TrimSpace(userID)
    if userID == "" { return ErrInvalidArgs }
    n, err := s.rdb.Del(ctx, keyEntry(userID)).Result()
    if err != nil { return err }
    if err := s.rdb.SRem(ctx, keyIndex(), userID).Err(); err != nil { return err }
    if n == 0 { return ErrNotQueued }
    obslog.L().Info("queue_dequeue", zap.String("user_id", userID))
    return nil
}

// Get returns the current entry for a user, or nil when absent.
func (s *Store) Get(ctx context.Context, userID string) (*Entry, error) {
    raw, err := s.rdb.Get(ctx, keyEntry(userID)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var e Entry
    if err := json.Unmarshal(raw, &e); err != nil { return nil, err }
    return &e, nil
}

// ListWaiting returns all waiting entries ordered by rating asc, then join
// time asc, then user id. The ordering fixes pairing priority, so it must be
// stable across calls on the same queue state.
func (s *Store) ListWaiting(ctx context.Context) ([]*Entry, error) {
    ids, err := s.rdb.SMembers(ctx, keyIndex()).Result()
    if err != nil { return nil, err }
    var out []*Entry
    for _, id := range ids {
        e, gerr := s.Get(ctx, id)
        if gerr != nil { return nil, gerr }
        if e == nil {
            // 만료된 엔트리의 인덱스 잔재 정리
            _ = s.rdb.SRem(ctx, keyIndex(), id).Err()
            continue
        }
        if e.Status != StatusWaiting { continue }
        out = append(out, e)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Rating != out[j].Rating { return out[i].Rating < out[j].Rating }
        if !out[i].JoinedAt.Equal(out[j].JoinedAt) { return out[i].JoinedAt.Before(out[j].JoinedAt) }
        return out[i].UserID < out[j].UserID
    })
    return out, nil
}

// MarkMatched flips an entry to matched with a reference to its match and
// re-sets it under the grace TTL, after which Redis deletes it. The TTL
// replaces a fire-and-forget cleanup timer so the delete survives restarts.
func (s *Store) MarkMatched(ctx context.Context, userID, matchID string) error {
    e, err := s.Get(ctx, userID)
    if err != nil { return err }
    if e == nil { return ErrNotQueued }
    e.Status = StatusMatched
    e.MatchID = strings.TrimSpace(matchID)
    raw, err := json.Marshal(e)
    if err != nil { return err }
    return s.rdb.Set(ctx, keyEntry(userID), raw, s.matchedGrace).Err()
}

// SweepExpired purges waiting entries older than the max wait threshold and
// returns how many were removed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
    ids, err := s.rdb.SMembers(ctx, keyIndex()).Result()
    if err != nil { return 0, err }
    purged := 0
    for _, id := range ids {
        e, gerr := s.Get(ctx, id)
        if gerr != nil { return purged, gerr }
        if e == nil {
            _ = s.rdb.SRem(ctx, keyIndex(), id).Err()
            continue
        }
        if e.Status != StatusWaiting { continue }
        if now.Sub(e.JoinedAt) <= s.maxWait { continue }
        if err := s.rdb.Del(ctx, keyEntry(id)).Err(); err != nil { return purged, err }
        _ = s.rdb.SRem(ctx, keyIndex(), id).Err()
        purged++
        obslog.L().Info("queue_sweep_expired",
            zap.String("user_id", id),
            zap.Time("joined_at", e.JoinedAt),
        )
    }
    return purged, nil
}
