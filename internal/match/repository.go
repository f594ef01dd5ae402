package match

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    _ "github.com/lib/pq"
)

// Repository persists player rating profiles and the completed-match archive.
type Repository struct {
    db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
    if strings.TrimSpace(databaseURL) == "" {
        return nil, fmt.Errorf("DATABASE_URL is required")
    }
    db, err := sql.Open("postgres", databaseURL)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(16)
    db.SetMaxIdleConns(8)
    db.SetConnMaxLifetime(30 * time.Minute)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
    if r == nil || r.db == nil { return nil }
    return r.db.Close()
}

// PlayerProfile is one player's persistent rating record.
type PlayerProfile struct {
    UserID        string
    DisplayName   string
    Rating        int
    MatchesPlayed int
    MatchesWon    int
}

// GetProfile loads a player's profile, or nil when the player has no record.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*PlayerProfile, error) {
    if r == nil || r.db == nil { return nil, nil }
    const q = `SELECT user_id, display_name, rating, matches_played, matches_won
        FROM player_profiles WHERE user_id = $1`
    var p PlayerProfile
    err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(userID)).Scan(
        &p.UserID, &p.DisplayName, &p.Rating, &p.MatchesPlayed, &p.MatchesWon,
    )
    if err == sql.ErrNoRows { return nil, nil }
    if err != nil { return nil, err }
    return &p, nil
}

// ApplyResult records a completed match: both players' new ratings, the
// played/won counters, and the archive row, all inside one transaction.
// The archive insert is keyed on match_id so a replayed result is a no-op.
func (r *Repository) ApplyResult(ctx context.Context, doc *Match, method string) error {
    if r == nil || r.db == nil || doc == nil {
        return nil
    }
    if doc.Status != StatusCompleted || len(doc.FinalRatings) != 2 {
        return fmt.Errorf("match %s is not a finalized result", doc.ID)
    }

    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { _ = tx.Rollback() }()

    const claimQ = `INSERT INTO matches (
            match_id, home_id, away_id, winner_id, forfeited, forfeited_by,
            result_method, home_rating_after, away_rating_after,
            started_at, completed_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (match_id) DO NOTHING`
    home, away := doc.Players[0], doc.Players[1]
    res, err := tx.ExecContext(ctx, claimQ,
        doc.ID, home.ID, away.ID, doc.Winner, doc.Forfeited, nullStr(doc.ForfeitedBy),
        strings.TrimSpace(method), doc.FinalRatings[home.ID], doc.FinalRatings[away.ID],
        nullTime(doc.StartedAt), nullTime(doc.CompletedAt),
    )
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 {
        // 이미 반영된 결과: 프로필을 중복 갱신하지 않는다
        return tx.Commit()
    }

    const upsertQ = `INSERT INTO player_profiles (user_id, display_name, rating, matches_played, matches_won)
        VALUES ($1, $2, $3, 1, $4)
        ON CONFLICT (user_id) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            rating = EXCLUDED.rating,
            matches_played = player_profiles.matches_played + 1,
            matches_won = player_profiles.matches_won + $4`
    for _, p := range doc.Players {
        won := 0
        if doc.Winner == p.ID { won = 1 }
        if _, err := tx.ExecContext(ctx, upsertQ, p.ID, p.DisplayName, doc.FinalRatings[p.ID], won); err != nil {
            return err
        }
    }
    return tx.Commit()
}

func nullStr(s string) any {
    if strings.TrimSpace(s) == "" { return nil }
    return s
}

func nullTime(t *time.Time) any {
    if t == nil { return nil }
    return *t
}
