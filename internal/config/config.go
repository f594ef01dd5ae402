package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	EngineBaseURL string

	// matchmaking
	MatchInterval   time.Duration
	PairRatingRange int
	QueueMaxWait    time.Duration
	MatchedGrace    time.Duration
	DefaultRating   int

	// match lifecycle
	ForfeitDelay time.Duration
	ForfeitSweep time.Duration
	MatchTTL     time.Duration

	// simulation sessions
	SessionTTL time.Duration
}

// fileOverrides is the optional YAML tuning file (CONFIG_FILE). Zero values are ignored.
type fileOverrides struct {
	HTTPAddr        string `yaml:"http_addr"`
	MatchIntervalS  int    `yaml:"match_interval_seconds"`
	PairRatingRange int    `yaml:"pair_rating_range"`
	QueueMaxWaitS   int    `yaml:"queue_max_wait_seconds"`
	MatchedGraceS   int    `yaml:"matched_grace_seconds"`
	DefaultRating   int    `yaml:"default_rating"`
	ForfeitDelayS   int    `yaml:"forfeit_delay_seconds"`
	ForfeitSweepS   int    `yaml:"forfeit_sweep_seconds"`
	SessionTTLS     int    `yaml:"session_ttl_seconds"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8090",
		MatchInterval:   10 * time.Second,
		PairRatingRange: 200,
		QueueMaxWait:    5 * time.Minute,
		MatchedGrace:    30 * time.Second,
		DefaultRating:   1200,
		ForfeitDelay:    60 * time.Second,
		ForfeitSweep:    5 * time.Second,
		MatchTTL:        24 * time.Hour,
		SessionTTL:      time.Hour,
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.EngineBaseURL = strings.TrimSpace(os.Getenv("ENGINE_BASE_URL"))

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAIR_RATING_RANGE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PairRatingRange = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("QUEUE_MAX_WAIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueMaxWait = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("FORFEIT_DELAY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForfeitDelay = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_RATING")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultRating = n
		}
	}

	// YAML 오버라이드는 운영 튜닝용: env보다 나중에 적용
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var o fileOverrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if strings.TrimSpace(o.HTTPAddr) != "" {
		c.HTTPAddr = strings.TrimSpace(o.HTTPAddr)
	}
	if o.MatchIntervalS > 0 {
		c.MatchInterval = time.Duration(o.MatchIntervalS) * time.Second
	}
	if o.PairRatingRange > 0 {
		c.PairRatingRange = o.PairRatingRange
	}
	if o.QueueMaxWaitS > 0 {
		c.QueueMaxWait = time.Duration(o.QueueMaxWaitS) * time.Second
	}
	if o.MatchedGraceS > 0 {
		c.MatchedGrace = time.Duration(o.MatchedGraceS) * time.Second
	}
	if o.DefaultRating > 0 {
		c.DefaultRating = o.DefaultRating
	}
	if o.ForfeitDelayS > 0 {
		c.ForfeitDelay = time.Duration(o.ForfeitDelayS) * time.Second
	}
	if o.ForfeitSweepS > 0 {
		c.ForfeitSweep = time.Duration(o.ForfeitSweepS) * time.Second
	}
	if o.SessionTTLS > 0 {
		c.SessionTTL = time.Duration(o.SessionTTLS) * time.Second
	}
	return nil
}
