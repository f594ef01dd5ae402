package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/park285/kickoff-server/internal/config"
	"github.com/park285/kickoff-server/internal/httpapi"
	"github.com/park285/kickoff-server/internal/match"
	"github.com/park285/kickoff-server/internal/obslog"
	"github.com/park285/kickoff-server/internal/queue"
	"github.com/park285/kickoff-server/internal/scheduler"
	"github.com/park285/kickoff-server/internal/simengine"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	opts, err := match.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	matchMgr := match.NewManager(rdb, cfg.MatchTTL, cfg.ForfeitDelay)
	var repo *match.Repository
	if cfg.DatabaseURL != "" {
		repo, err = match.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
		matchMgr.AttachRepository(repo)
	} else {
		obslog.L().Warn("no DATABASE_URL configured; ratings live only in match documents")
	}

	queueStore := queue.NewStore(rdb, cfg.QueueMaxWait, cfg.MatchedGrace, cfg.DefaultRating)
	sched := scheduler.New(queueStore, matchMgr, cfg.MatchInterval, cfg.PairRatingRange)

	var engine simengine.Engine
	var sessions *simengine.SessionStore
	if cfg.EngineBaseURL != "" {
		engine = simengine.NewClient(cfg.EngineBaseURL)
		sessions = simengine.NewSessionStore(rdb, cfg.SessionTTL)
	} else {
		obslog.L().Warn("no ENGINE_BASE_URL configured; game session endpoints disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	api := httpapi.NewServer(queueStore, matchMgr, repo, engine, sessions)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router()}

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)
	go matchMgr.RunSweeper(ctx, cfg.ForfeitSweep)
	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = httpSrv.Shutdown(shutCtx)
	shutCancel()
	if repo != nil {
		_ = repo.Close()
	}
	_ = rdb.Close()
}
