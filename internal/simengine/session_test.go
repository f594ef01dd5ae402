package simengine

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
)

func newTestSessions(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return NewSessionStore(rdb, time.Hour), mr
}

func TestSessionRoundTrip(t *testing.T) {
    s, _ := newTestSessions(t)
    ctx := context.Background()

    state := json.RawMessage(`{"ball":{"x":0,"y":0},"half":1}`)
    id, err := s.Create(ctx, state)
    if err != nil || id == "" { t.Fatalf("Create: %v", err) }

    got, err := s.Load(ctx, id)
    if err != nil { t.Fatalf("Load: %v", err) }
    if string(got) != string(state) { t.Fatalf("state mismatch: %s", got) }

    next := json.RawMessage(`{"ball":{"x":3,"y":1},"half":1}`)
    if err := s.Save(ctx, id, next); err != nil { t.Fatalf("Save: %v", err) }
    got, err = s.Load(ctx, id)
    if err != nil { t.Fatalf("Load#2: %v", err) }
    if string(got) != string(next) { t.Fatalf("updated state mismatch: %s", got) }
}

func TestSessionExpires(t *testing.T) {
    s, mr := newTestSessions(t)
    ctx := context.Background()

    id, err := s.Create(ctx, json.RawMessage(`{}`))
    if err != nil { t.Fatalf("Create: %v", err) }

    mr.FastForward(time.Hour + time.Minute)
    if _, err := s.Load(ctx, id); err != ErrSessionNotFound {
        t.Fatalf("expected ErrSessionNotFound after TTL, got %v", err)
    }
}

func TestSessionDelete(t *testing.T) {
    s, _ := newTestSessions(t)
    ctx := context.Background()
    id, err := s.Create(ctx, json.RawMessage(`{"half":2}`))
    if err != nil { t.Fatalf("Create: %v", err) }
    if err := s.Delete(ctx, id); err != nil { t.Fatalf("Delete: %v", err) }
    if _, err := s.Load(ctx, id); err != ErrSessionNotFound {
        t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
    }
}
