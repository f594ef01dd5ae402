package scheduler

import (
    "context"
    "time"

    "github.com/park285/kickoff-server/internal/match"
    "github.com/park285/kickoff-server/internal/obslog"
    "github.com/park285/kickoff-server/internal/queue"
    "go.uber.org/zap"
)

// Pairing is one matched pair of queue entries.
type Pairing struct {
    A *queue.Entry
    B *queue.Entry
}

// Scheduler runs the periodic matchmaking pass over the waiting queue.
type Scheduler struct {
    queue       *queue.Store
    matches     *match.Manager
    interval    time.Duration
    ratingRange int
}

func New(q *queue.Store, m *match.Manager, interval time.Duration, ratingRange int) *Scheduler {
    if interval <= 0 { interval = 10 * time.Second }
    if ratingRange <= 0 { ratingRange = 200 }
    return &Scheduler{queue: q, matches: m, interval: interval, ratingRange: ratingRange}
}

// Run executes passes on a fixed cadence until the context ends. A failed
// pass is logged and the next tick retries from current queue state.
func (s *Scheduler) Run(ctx context.Context) {
    t := time.NewTicker(s.interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if err := s.Pass(ctx); err != nil {
                obslog.L().Warn("matchmaking_pass_error", zap.Error(err))
            }
        }
    }
}

// GeneratePairings pairs waiting entries with a greedy forward scan over the
// rating-sorted list: each unmatched entry takes the first later unmatched
// entry within the rating range. Greedy and order-dependent on purpose; the
// sort in ListWaiting makes the outcome deterministic for a given queue.
func GeneratePairings(entries []*queue.Entry, ratingRange int) []Pairing {
    matched := make([]bool, len(entries))
    var out []Pairing
    for i := 0; i < len(entries); i++ {
        if matched[i] { continue }
        for j := i + 1; j < len(entries); j++ {
            if matched[j] { continue }
            diff := entries[j].Rating - entries[i].Rating
            if diff < 0 { diff = -diff }
            if diff > ratingRange { continue }
            matched[i], matched[j] = true, true
            out = append(out, Pairing{A: entries[i], B: entries[j]})
            break
        }
    }
    return out
}

// Pass fetches the waiting list, creates matches for every pairing, and then
// purges expired entries. Entries left unpaired stay waiting for next pass.
func (s *Scheduler) Pass(ctx context.Context) error {
    entries, err := s.queue.ListWaiting(ctx)
    if err != nil { return err }

    pairings := GeneratePairings(entries, s.ratingRange)
    for _, p := range pairings {
        doc, err := s.matches.CreateFromPairing(ctx,
            match.Player{ID: p.A.UserID, DisplayName: p.A.DisplayName, Rating: p.A.Rating, TeamID: p.A.TeamID},
            match.Player{ID: p.B.UserID, DisplayName: p.B.DisplayName, Rating: p.B.Rating, TeamID: p.B.TeamID},
        )
        if err != nil { return err }
        if err := s.queue.MarkMatched(ctx, p.A.UserID, doc.ID); err != nil { return err }
        if err := s.queue.MarkMatched(ctx, p.B.UserID, doc.ID); err != nil { return err }
        obslog.L().Info("matchmaking_paired",
            zap.String("match_id", doc.ID),
            zap.String("user_a", p.A.UserID),
            zap.String("user_b", p.B.UserID),
            zap.Int("rating_delta", p.B.Rating-p.A.Rating),
        )
    }

    purged, err := s.queue.SweepExpired(ctx, time.Now())
    if err != nil { return err }
    if len(pairings) > 0 || purged > 0 {
        obslog.L().Info("matchmaking_pass",
            zap.Int("waiting", len(entries)),
            zap.Int("paired", len(pairings)*2),
            zap.Int("purged", purged),
        )
    }
    return nil
}
