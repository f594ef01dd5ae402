package match

import (
    "context"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/park285/kickoff-server/internal/obslog"
    "go.uber.org/zap"
)

// Failed repository writes are queued in one ZSET scored by retry time, so a
// result whose SQL commit failed is replayed after the match document already
// says completed. Member format: <matchID>|<method>.
func keyPersistDue() string { return "match:persist:due" }

const persistRetryDelay = 10 * time.Second

func persistMember(matchID, method string) string { return matchID + "|" + method }

func splitPersistMember(member string) (matchID, method string, ok bool) {
    i := strings.IndexByte(member, '|')
    if i <= 0 || i == len(member)-1 { return "", "", false }
    return member[:i], member[i+1:], true
}

func (m *Manager) schedulePersistRetry(ctx context.Context, matchID, method string, due time.Time) {
    err := m.rdb.ZAdd(ctx, keyPersistDue(), redis.Z{
        Score:  float64(due.UnixMilli()),
        Member: persistMember(matchID, method),
    }).Err()
    if err != nil {
        obslog.L().Error("persist_retry_schedule_error", zap.String("match_id", matchID), zap.Error(err))
        return
    }
    obslog.L().Warn("persist_retry_scheduled",
        zap.String("match_id", matchID),
        zap.String("method", method),
        zap.Time("due", due),
    )
}

// SweepPersists claims and replays every result write due at or before now.
// Claiming is ZREM-first like the forfeit sweep; a replay that fails again
// re-schedules itself, so the entry survives until the database accepts it.
func (m *Manager) SweepPersists(ctx context.Context, now time.Time) error {
    if m.repo == nil { return nil }
    max := strconv.FormatInt(now.UnixMilli(), 10)
    members, err := m.rdb.ZRangeByScore(ctx, keyPersistDue(), &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
    if err != nil { return err }
    for _, member := range members {
        claimed, err := m.rdb.ZRem(ctx, keyPersistDue(), member).Result()
        if err != nil { return err }
        if claimed == 0 { continue } // 다른 스위퍼가 선점
        matchID, method, ok := splitPersistMember(member)
        if !ok { continue }
        doc, err := m.store.Load(ctx, matchID)
        if err != nil {
            m.schedulePersistRetry(ctx, matchID, method, now.Add(persistRetryDelay))
            continue
        }
        if doc == nil { continue } // 문서 TTL 만료: 보관할 결과 없음
        m.persistResult(ctx, doc, method)
    }
    return nil
}
