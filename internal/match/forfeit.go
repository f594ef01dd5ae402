package match

import (
    "context"
    "errors"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/park285/kickoff-server/internal/obslog"
    "github.com/park285/kickoff-server/internal/rating"
    "go.uber.org/zap"
)

// Pending forfeit checks live in one ZSET scored by due time so they survive
// process restarts. Member format: <matchID>|<userID>.
func keyForfeitDue() string { return "match:forfeit:due" }

// errForfeitSkip aborts a forfeit transaction without treating it as a
// failure: the state moved on (reconnect, completion, missing doc).
var errForfeitSkip = errf("forfeit check superseded")

func forfeitMember(matchID, userID string) string { return matchID + "|" + userID }

func splitForfeitMember(member string) (matchID, userID string, ok bool) {
    i := strings.IndexByte(member, '|')
    if i <= 0 || i == len(member)-1 { return "", "", false }
    return member[:i], member[i+1:], true
}

func (m *Manager) scheduleForfeitCheck(ctx context.Context, matchID, userID string, due time.Time) error {
    return m.rdb.ZAdd(ctx, keyForfeitDue(), redis.Z{
        Score:  float64(due.UnixMilli()),
        Member: forfeitMember(matchID, userID),
    }).Err()
}

func (m *Manager) cancelForfeitCheck(ctx context.Context, matchID, userID string) {
    if err := m.rdb.ZRem(ctx, keyForfeitDue(), forfeitMember(matchID, userID)).Err(); err != nil {
        obslog.L().Warn("forfeit_cancel_error", zap.String("match_id", matchID), zap.Error(err))
    }
}

// RunSweeper polls for due forfeit checks and pending result replays until
// the context ends.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
    if interval <= 0 { interval = 5 * time.Second }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            now := time.Now()
            if err := m.SweepForfeits(ctx, now); err != nil {
                obslog.L().Warn("forfeit_sweep_error", zap.Error(err))
            }
            if err := m.SweepPersists(ctx, now); err != nil {
                obslog.L().Warn("persist_sweep_error", zap.Error(err))
            }
        }
    }
}

// SweepForfeits claims and executes every check due at or before now.
// Claiming is ZREM-first: the member is removed before acting so only one
// sweeper process executes a given check.
func (m *Manager) SweepForfeits(ctx context.Context, now time.Time) error {
    max := strconv.FormatInt(now.UnixMilli(), 10)
    members, err := m.rdb.ZRangeByScore(ctx, keyForfeitDue(), &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
    if err != nil { return err }
    for _, member := range members {
        claimed, err := m.rdb.ZRem(ctx, keyForfeitDue(), member).Result()
        if err != nil { return err }
        if claimed == 0 { continue } // 다른 스위퍼가 선점
        matchID, userID, ok := splitForfeitMember(member)
        if !ok { continue }
        m.checkForfeit(ctx, matchID, userID)
    }
    return nil
}

// checkForfeit re-reads current match state at fire time and forfeits the
// match to the opponent only if the player is still disconnected and the
// match is still active. Anything else is a silent no-op.
func (m *Manager) checkForfeit(ctx context.Context, matchID, userID string) {
    doc, err := m.store.Update(ctx, matchID, func(cur *Match) error {
        if cur.Status != StatusActive { return errForfeitSkip }
        player := cur.PlayerByID(userID)
        if player == nil { return errForfeitSkip }
        pr := cur.GameState.Players[userID]
        if pr == nil || pr.Connected { return errForfeitSkip }

        opponent := cur.OpponentOf(userID)
        res := rating.Update(opponent.Rating, player.Rating)
        now := time.Now().UTC()
        cur.Status = StatusCompleted
        cur.Forfeited = true
        cur.ForfeitedBy = player.ID
        cur.Winner = opponent.ID
        cur.CompletedAt = &now
        cur.FinalRatings = map[string]int{
            opponent.ID: res.Winner,
            player.ID:   res.Loser,
        }
        return nil
    })
    if err != nil {
        if errors.Is(err, errForfeitSkip) || errors.Is(err, ErrNotFound) {
            return
        }
        obslog.L().Warn("forfeit_check_error", zap.String("match_id", matchID), zap.Error(err))
        return
    }
    obslog.L().Info("match_forfeit",
        zap.String("match_id", matchID),
        zap.String("forfeited_by", userID),
        zap.String("winner", doc.Winner),
    )
    m.persistResult(ctx, doc, "forfeit")
}
