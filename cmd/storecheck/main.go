package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/kickoff-server/internal/match"
)

// storecheck probes the backing stores: redis ping, queue depth, and an
// optional postgres ping. Intended for deploy-time smoke checks.
func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	opts, err := match.ParseRedisURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
	log.Printf("redis ok: %s", opts.Addr)

	depth, err := rdb.SCard(ctx, "mm:index").Result()
	if err != nil {
		log.Printf("queue depth read error: %v", err)
	} else {
		log.Printf("queue index members: %d", depth)
	}

	pending, err := rdb.ZCard(ctx, "match:forfeit:due").Result()
	if err != nil {
		log.Printf("forfeit queue read error: %v", err)
	} else {
		log.Printf("pending forfeit checks: %d", pending)
	}

	replays, err := rdb.ZCard(ctx, "match:persist:due").Result()
	if err != nil {
		log.Printf("persist queue read error: %v", err)
	} else {
		log.Printf("pending result replays: %d", replays)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		repo, err := match.NewRepository(dbURL)
		if err != nil {
			log.Fatalf("postgres check failed: %v", err)
		}
		_ = repo.Close()
		log.Printf("postgres ok")
	} else {
		log.Printf("DATABASE_URL not set; skipping postgres check")
	}
}
