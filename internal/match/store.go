package match

import (
    "context"
    "encoding/json"
    "errors"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/park285/kickoff-server/internal/obslog"
    "go.uber.org/zap"
)

const txRetries = 5

// Store keeps match documents as JSON blobs in Redis and broadcasts every
// committed mutation on a per-match pubsub channel.
type Store struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
    if ttl <= 0 { ttl = 24 * time.Hour }
    return &Store{rdb: rdb, ttl: ttl}
}

func keyDoc(id string) string      { return "match:doc:" + strings.TrimSpace(id) }
func keyUserIdx(user string) string { return "match:index:user:" + strings.TrimSpace(user) }
func chanEvents(id string) string  { return "match:events:" + strings.TrimSpace(id) }

// Save writes a match document unconditionally and publishes it.
// Creation only; concurrent mutation must go through Update.
func (s *Store) Save(ctx context.Context, m *Match) error {
    raw, err := json.Marshal(m)
    if err != nil { return err }
    if err := s.rdb.Set(ctx, keyDoc(m.ID), raw, s.ttl).Err(); err != nil { return err }
    s.publish(ctx, m.ID, raw)
    return nil
}

// Load returns the match document, or nil when absent.
func (s *Store) Load(ctx context.Context, id string) (*Match, error) {
    raw, err := s.rdb.Get(ctx, keyDoc(id)).Bytes()
    if err == redis.Nil { return nil, nil }
    if err != nil { return nil, err }
    var m Match
    if err := json.Unmarshal(raw, &m); err != nil { return nil, err }
    return &m, nil
}

// Update applies fn to the current document under an optimistic WATCH
// transaction: read, mutate, write, all-or-nothing. Conflicting writers make
// the transaction fail and the whole read-mutate-write is retried against
// fresh state, so fn must be side-effect free.
func (s *Store) Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error) {
    docK := keyDoc(id)
    var out *Match
    for attempt := 0; attempt < txRetries; attempt++ {
        err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
            raw, err := tx.Get(ctx, docK).Bytes()
            if err == redis.Nil { return ErrNotFound }
            if err != nil { return err }
            var cur Match
            if jerr := json.Unmarshal(raw, &cur); jerr != nil { return jerr }
            if ferr := fn(&cur); ferr != nil { return ferr }
            newRaw, merr := json.Marshal(&cur)
            if merr != nil { return merr }
            pipe := tx.TxPipeline()
            pipe.Set(ctx, docK, newRaw, s.ttl)
            if _, perr := pipe.Exec(ctx); perr != nil { return perr }
            out = &cur
            s.publish(ctx, id, newRaw)
            return nil
        }, docK)
        if errors.Is(err, redis.TxFailedErr) {
            obslog.L().Warn("match_tx_conflict", zap.String("match_id", id), zap.Int("attempt", attempt+1))
            continue
        }
        if err != nil { return nil, err }
        return out, nil
    }
    return nil, redis.TxFailedErr
}

// IndexParticipants records match membership per user for lookups.
func (s *Store) IndexParticipants(ctx context.Context, matchID string, userIDs ...string) error {
    for _, uid := range userIDs {
        if strings.TrimSpace(uid) == "" { continue }
        key := keyUserIdx(uid)
        if err := s.rdb.SAdd(ctx, key, matchID).Err(); err != nil { return err }
        _ = s.rdb.Expire(ctx, key, s.ttl).Err()
    }
    return nil
}

// MatchIDsByUser returns ids of matches the user participates in.
func (s *Store) MatchIDsByUser(ctx context.Context, userID string) ([]string, error) {
    return s.rdb.SMembers(ctx, keyUserIdx(userID)).Result()
}

// Subscribe opens a pubsub subscription on the match's event channel.
// 커밋된 업데이트마다 전체 문서 JSON이 발행된다.
func (s *Store) Subscribe(ctx context.Context, matchID string) *redis.PubSub {
    return s.rdb.Subscribe(ctx, chanEvents(matchID))
}

func (s *Store) publish(ctx context.Context, id string, raw []byte) {
    if err := s.rdb.Publish(ctx, chanEvents(id), raw).Err(); err != nil {
        obslog.L().Warn("match_publish_error", zap.String("match_id", id), zap.Error(err))
    }
}

// ParseRedisURL turns a redis:// or rediss:// URL into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
    u, err := url.Parse(raw)
    if err != nil { return nil, err }
    if u.Scheme != "redis" && u.Scheme != "rediss" { return nil, errors.New("unsupported scheme: " + u.Scheme) }
    db := 0
    if p := strings.TrimPrefix(u.Path, "/"); p != "" {
        if n, err := strconv.Atoi(p); err == nil { db = n }
    }
    pass, _ := u.User.Password()
    return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
