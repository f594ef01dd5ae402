package queue

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return NewStore(rdb, 5*time.Minute, 30*time.Second, 1200), mr, rdb
}

func TestEnqueueIdempotent(t *testing.T) {
    s, _, _ := newTestStore(t)
    ctx := context.Background()

    if _, err := s.Enqueue(ctx, "u1", Profile{DisplayName: "Old", Rating: 1000}); err != nil {
        t.Fatalf("Enqueue#1: %v", err)
    }
    if _, err := s.Enqueue(ctx, "u1", Profile{DisplayName: "New", Rating: 1300}); err != nil {
        t.Fatalf("Enqueue#2: %v", err)
    }

    entries, err := s.ListWaiting(ctx)
    if err != nil { t.Fatalf("ListWaiting: %v", err) }
    if len(entries) != 1 {
        t.Fatalf("expected exactly one entry after re-enqueue, got %d", len(entries))
    }
    if entries[0].DisplayName != "New" || entries[0].Rating != 1300 {
        t.Fatalf("expected latest data to win: %+v", entries[0])
    }
}

func TestEnqueueDefaultRating(t *testing.T) {
    s, _, _ := newTestStore(t)
    e, err := s.Enqueue(context.Background(), "u1", Profile{DisplayName: "A"})
    if err != nil { t.Fatalf("Enqueue: %v", err) }
    if e.Rating != 1200 { t.Fatalf("expected default rating 1200, got %d", e.Rating) }
}

func TestListWaitingOrdering(t *testing.T) {
    s, _, _ := newTestStore(t)
    ctx := context.Background()

    if _, err := s.Enqueue(ctx, "high", Profile{Rating: 1500}); err != nil { t.Fatalf("Enqueue: %v", err) }
    if _, err := s.Enqueue(ctx, "low", Profile{Rating: 1100}); err != nil { t.Fatalf("Enqueue: %v", err) }
    time.Sleep(5 * time.Millisecond)
    if _, err := s.Enqueue(ctx, "mid-late", Profile{Rating: 1300}); err != nil { t.Fatalf("Enqueue: %v", err) }
    time.Sleep(5 * time.Millisecond)
    if _, err := s.Enqueue(ctx, "mid-later", Profile{Rating: 1300}); err != nil { t.Fatalf("Enqueue: %v", err) }

    entries, err := s.ListWaiting(ctx)
    if err != nil { t.Fatalf("ListWaiting: %v", err) }
    got := make([]string, 0, len(entries))
    for _, e := range entries { got = append(got, e.UserID) }
    want := []string{"low", "mid-late", "mid-later", "high"}
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
        }
    }
}

func TestDequeue(t *testing.T) {
    s, _, _ := newTestStore(t)
    ctx := context.Background()
    if _, err := s.Enqueue(ctx, "u1", Profile{}); err != nil { t.Fatalf("Enqueue: %v", err) }
    if err := s.Dequeue(ctx, "u1"); err != nil { t.Fatalf("Dequeue: %v", err) }
    if err := s.Dequeue(ctx, "u1"); err != ErrNotQueued {
        t.Fatalf("expected ErrNotQueued on second dequeue, got %v", err)
    }
}

func TestMarkMatchedExpiresAfterGrace(t *testing.T) {
    s, mr, _ := newTestStore(t)
    ctx := context.Background()
    if _, err := s.Enqueue(ctx, "u1", Profile{Rating: 1200}); err != nil { t.Fatalf("Enqueue: %v", err) }
    if err := s.MarkMatched(ctx, "u1", "m-1"); err != nil { t.Fatalf("MarkMatched: %v", err) }

    e, err := s.Get(ctx, "u1")
    if err != nil || e == nil { t.Fatalf("Get: %v", err) }
    if e.Status != StatusMatched || e.MatchID != "m-1" {
        t.Fatalf("expected matched entry with match id, got %+v", e)
    }
    // matched entries no longer count as waiting
    waiting, err := s.ListWaiting(ctx)
    if err != nil { t.Fatalf("ListWaiting: %v", err) }
    if len(waiting) != 0 { t.Fatalf("matched entry still listed as waiting") }

    mr.FastForward(31 * time.Second)
    e, err = s.Get(ctx, "u1")
    if err != nil { t.Fatalf("Get after grace: %v", err) }
    if e != nil { t.Fatalf("expected entry deleted after grace TTL, got %+v", e) }
}

func TestSweepExpired(t *testing.T) {
    s, _, rdb := newTestStore(t)
    ctx := context.Background()
    if _, err := s.Enqueue(ctx, "stale", Profile{Rating: 1200}); err != nil { t.Fatalf("Enqueue: %v", err) }
    if _, err := s.Enqueue(ctx, "fresh", Profile{Rating: 1200}); err != nil { t.Fatalf("Enqueue: %v", err) }

    // age the stale entry past the max wait
    e, err := s.Get(ctx, "stale")
    if err != nil || e == nil { t.Fatalf("Get: %v", err) }
    e.JoinedAt = time.Now().UTC().Add(-6 * time.Minute)
    raw, _ := json.Marshal(e)
    if err := rdb.Set(ctx, "mm:entry:stale", raw, 0).Err(); err != nil { t.Fatalf("set: %v", err) }

    purged, err := s.SweepExpired(ctx, time.Now())
    if err != nil { t.Fatalf("SweepExpired: %v", err) }
    if purged != 1 { t.Fatalf("expected 1 purged, got %d", purged) }

    entries, err := s.ListWaiting(ctx)
    if err != nil { t.Fatalf("ListWaiting: %v", err) }
    if len(entries) != 1 || entries[0].UserID != "fresh" {
        t.Fatalf("expected only fresh entry to survive, got %+v", entries)
    }
}
