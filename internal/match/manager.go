package match

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
    "github.com/park285/kickoff-server/internal/obslog"
    "github.com/park285/kickoff-server/internal/rating"
    "go.uber.org/zap"
)

// Field bounds for position validation.
const (
    fieldMaxX = 50.0
    fieldMaxZ = 30.0
    fieldMaxY = 10.0

    maxMatchTime = 5400
    absurdScore  = 20
)

// Manager validates and applies state-changing operations on match documents.
type Manager struct {
    rdb          *redis.Client
    store        *Store
    repo         *Repository
    forfeitDelay time.Duration
}

func NewManager(rdb *redis.Client, matchTTL, forfeitDelay time.Duration) *Manager {
    if forfeitDelay <= 0 { forfeitDelay = 60 * time.Second }
    return &Manager{rdb: rdb, store: NewStore(rdb, matchTTL), forfeitDelay: forfeitDelay}
}

// AttachRepository wires a database repository for rating profiles and the
// completed-match archive.
func (m *Manager) AttachRepository(r *Repository) {
    if m != nil {
        m.repo = r
    }
}

// Store exposes the underlying document store for read paths (API, live watch).
func (m *Manager) Store() *Store { return m.store }

// CreateFromPairing instantiates a waiting match for two paired players.
// Scheduler only; players arrive not ready and count as connected.
func (m *Manager) CreateFromPairing(ctx context.Context, p1, p2 Player) (*Match, error) {
    if strings.TrimSpace(p1.ID) == "" || strings.TrimSpace(p2.ID) == "" || p1.ID == p2.ID {
        return nil, ErrInvalidArgs
    }
    p1.Ready, p2.Ready = false, false
    now := time.Now().UTC()
    doc := &Match{
        ID:        uuid.NewString(),
        Type:      "h2h",
        Players:   [2]Player{p1, p2},
        Status:    StatusWaiting,
        CreatedAt: now,
        GameState: GameState{
            Players: map[string]*Presence{
                p1.ID: {Connected: true},
                p2.ID: {Connected: true},
            },
        },
    }
    if err := m.store.Save(ctx, doc); err != nil { return nil, err }
    if err := m.store.IndexParticipants(ctx, doc.ID, p1.ID, p2.ID); err != nil { return nil, err }
    obslog.L().Info("match_create",
        zap.String("match_id", doc.ID),
        zap.String("home_id", p1.ID),
        zap.String("away_id", p2.ID),
        zap.Int("home_rating", p1.Rating),
        zap.Int("away_rating", p2.Rating),
    )
    return doc, nil
}

// Get returns a match document for a participant.
func (m *Manager) Get(ctx context.Context, callerID, matchID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    doc, err := m.store.Load(ctx, matchID)
    if err != nil { return nil, err }
    if doc == nil { return nil, ErrNotFound }
    if !doc.IsParticipant(callerID) { return nil, ErrNotParticipant }
    return doc, nil
}

// SetReady marks the caller ready. Once both players are ready the match
// moves waiting → starting.
func (m *Manager) SetReady(ctx context.Context, callerID, matchID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        p := cur.PlayerByID(callerID)
        if p == nil { return ErrNotParticipant }
        if cur.Status != StatusWaiting && cur.Status != StatusStarting { return ErrBadTransition }
        p.Ready = true
        if cur.Players[0].Ready && cur.Players[1].Ready {
            cur.Status = StatusStarting
        }
        return nil
    })
    if err != nil { return nil, err }
    obslog.L().Info("match_ready",
        zap.String("match_id", matchID),
        zap.String("user_id", callerID),
        zap.String("status", string(doc.Status)),
    )
    return doc, nil
}

// Activate moves a starting match into play and stamps StartedAt.
func (m *Manager) Activate(ctx context.Context, callerID, matchID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        if !cur.IsParticipant(callerID) { return ErrNotParticipant }
        if cur.Status == StatusActive { return nil } // 상대가 먼저 활성화했을 수 있음
        if cur.Status != StatusStarting { return ErrBadTransition }
        now := time.Now().UTC()
        cur.Status = StatusActive
        cur.StartedAt = &now
        return nil
    })
    if err != nil { return nil, err }
    obslog.L().Info("match_activate", zap.String("match_id", matchID), zap.String("user_id", callerID))
    return doc, nil
}

// Complete finalizes an active match: winner, completion time, and the two
// new ELO ratings land in the document in a single transaction. Profile and
// archive rows follow in one SQL transaction.
func (m *Manager) Complete(ctx context.Context, callerID, matchID, winnerID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    if strings.TrimSpace(matchID) == "" || strings.TrimSpace(winnerID) == "" { return nil, ErrInvalidArgs }

    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        if !cur.IsParticipant(callerID) { return ErrNotParticipant }
        if cur.Status != StatusActive { return ErrNotActive }
        winner := cur.PlayerByID(winnerID)
        if winner == nil { return ErrInvalidWinner }
        loser := cur.OpponentOf(winnerID)

        res := rating.Update(winner.Rating, loser.Rating)
        now := time.Now().UTC()
        cur.Status = StatusCompleted
        cur.Winner = winner.ID
        cur.CompletedAt = &now
        cur.FinalRatings = map[string]int{
            winner.ID: res.Winner,
            loser.ID:  res.Loser,
        }
        return nil
    })
    if err != nil { return nil, err }

    obslog.L().Info("match_complete",
        zap.String("match_id", matchID),
        zap.String("winner", doc.Winner),
        zap.Int("winner_rating", doc.FinalRatings[doc.Winner]),
        zap.Int("loser_rating", doc.FinalRatings[doc.OpponentOf(doc.Winner).ID]),
    )
    m.persistResult(ctx, doc, "completed")
    return doc, nil
}

// ValidateGameState checks a proposed game state against pitch and sanity
// bounds. Advisory: nothing is persisted here. The first violated bound is
// returned; an absurd-high score is logged, not rejected.
func (m *Manager) ValidateGameState(ctx context.Context, callerID, matchID string, st *GameState) error {
    if strings.TrimSpace(callerID) == "" { return ErrUnauthenticated }
    if st == nil { return ErrInvalidArgs }
    doc, err := m.store.Load(ctx, matchID)
    if err != nil { return err }
    if doc == nil { return ErrNotFound }
    if !doc.IsParticipant(callerID) { return ErrNotParticipant }

    if st.Score.Home < 0 || st.Score.Away < 0 {
        return ErrScoreNegative
    }
    if st.Score.Home > absurdScore || st.Score.Away > absurdScore {
        obslog.L().Warn("match_state_suspicious_score",
            zap.String("match_id", matchID),
            zap.Int("home", st.Score.Home),
            zap.Int("away", st.Score.Away),
        )
    }
    if st.Time < 0 || st.Time > maxMatchTime {
        return ErrTimeOutOfRange
    }
    for key, pos := range st.Positions {
        if pos.X < -fieldMaxX || pos.X > fieldMaxX {
            return fmt.Errorf("position %s: x %.1f out of bounds", key, pos.X)
        }
        if pos.Z < -fieldMaxZ || pos.Z > fieldMaxZ {
            return fmt.Errorf("position %s: z %.1f out of bounds", key, pos.Z)
        }
        if pos.Y < 0 || pos.Y > fieldMaxY {
            return fmt.Errorf("position %s: y %.1f out of bounds", key, pos.Y)
        }
    }
    return nil
}

// HandleDisconnect marks the caller disconnected, pauses the match, and
// enqueues a durable forfeit check due after the forfeit delay. The check is
// a Redis ZSET member, so it fires even if this process recycles.
func (m *Manager) HandleDisconnect(ctx context.Context, callerID, matchID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        if !cur.IsParticipant(callerID) { return ErrNotParticipant }
        if cur.Status == StatusCompleted { return ErrNotActive }
        now := time.Now().UTC()
        pr := cur.GameState.Players[callerID]
        if pr == nil {
            pr = &Presence{}
            if cur.GameState.Players == nil { cur.GameState.Players = map[string]*Presence{} }
            cur.GameState.Players[callerID] = pr
        }
        pr.Connected = false
        pr.DisconnectedAt = &now
        pr.ReconnectedAt = nil
        cur.GameState.Paused = true
        cur.GameState.PauseReason = PauseReasonDisconnect
        return nil
    })
    if err != nil { return nil, err }
    if err := m.scheduleForfeitCheck(ctx, matchID, callerID, time.Now().Add(m.forfeitDelay)); err != nil {
        return nil, err
    }
    obslog.L().Info("match_disconnect",
        zap.String("match_id", matchID),
        zap.String("user_id", callerID),
        zap.Duration("forfeit_delay", m.forfeitDelay),
    )
    return doc, nil
}

// HandleReconnect marks the caller connected again and cancels the pending
// forfeit check. The check's own at-fire re-read still guards the race where
// it fires concurrently with this call.
func (m *Manager) HandleReconnect(ctx context.Context, callerID, matchID string) (*Match, error) {
    if strings.TrimSpace(callerID) == "" { return nil, ErrUnauthenticated }
    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        if !cur.IsParticipant(callerID) { return ErrNotParticipant }
        if cur.Status == StatusCompleted { return ErrNotActive }
        now := time.Now().UTC()
        pr := cur.GameState.Players[callerID]
        if pr == nil {
            pr = &Presence{}
            if cur.GameState.Players == nil { cur.GameState.Players = map[string]*Presence{} }
            cur.GameState.Players[callerID] = pr
        }
        pr.Connected = true
        pr.ReconnectedAt = &now
        if cur.GameState.PauseReason == PauseReasonDisconnect && allConnected(cur) {
            cur.GameState.Paused = false
            cur.GameState.PauseReason = ""
        }
        return nil
    })
    if err != nil { return nil, err }
    m.cancelForfeitCheck(ctx, matchID, callerID)
    obslog.L().Info("match_reconnect", zap.String("match_id", matchID), zap.String("user_id", callerID))
    return doc, nil
}

func allConnected(m *Match) bool {
    for _, p := range m.Players {
        pr := m.GameState.Players[p.ID]
        if pr == nil || !pr.Connected { return false }
    }
    return true
}

// persistResult saves the final result to the repository when configured.
// The match document is already committed at this point, so a failing SQL
// write is not surfaced to the caller; it is queued for replay instead and
// the sweeper retries until ApplyResult's match_id claim lands.
func (m *Manager) persistResult(ctx context.Context, doc *Match, method string) {
    if m == nil || m.repo == nil || doc == nil {
        return
    }
    if doc.Status != StatusCompleted {
        return
    }
    if err := m.repo.ApplyResult(ctx, doc, method); err != nil {
        obslog.L().Error("match_result_persist_error",
            zap.String("match_id", doc.ID),
            zap.String("method", method),
            zap.Error(err),
        )
        m.schedulePersistRetry(ctx, doc.ID, method, time.Now().Add(persistRetryDelay))
        return
    }
    obslog.L().Info("match_result_persist", zap.String("match_id", doc.ID), zap.String("method", method))
}
