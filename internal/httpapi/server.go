package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/kickoff-server/internal/match"
	"github.com/park285/kickoff-server/internal/obslog"
	"github.com/park285/kickoff-server/internal/queue"
	"github.com/park285/kickoff-server/internal/simengine"
	"github.com/park285/kickoff-server/pkg/matchdto"
)

// Server is the thin JSON surface over the matchmaking core. All real rules
// live in the queue store and the match manager; handlers only translate.
type Server struct {
	queue    *queue.Store
	matches  *match.Manager
	repo     *match.Repository
	engine   simengine.Engine
	sessions *simengine.SessionStore
}

func NewServer(q *queue.Store, m *match.Manager, repo *match.Repository, engine simengine.Engine, sessions *simengine.SessionStore) *Server {
	return &Server{queue: q, matches: m, repo: repo, engine: engine, sessions: sessions}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		writeErr(c, http.StatusMethodNotAllowed, matchdto.KindBadInput, "method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		writeErr(c, http.StatusNotFound, matchdto.KindNotFound, "no such endpoint")
	})

	authed := r.Group("/", requireCaller())
	{
		authed.POST("/queue/join", s.joinQueue)
		authed.POST("/queue/leave", s.leaveQueue)
		authed.GET("/match/:id", s.getMatch)
		authed.GET("/ws/match/:id", s.watchMatch)

		rpc := authed.Group("/rpc")
		{
			rpc.POST("/ready", s.ready)
			rpc.POST("/activate", s.activate)
			rpc.POST("/completeMatch", s.completeMatch)
			rpc.POST("/validateGameState", s.validateGameState)
			rpc.POST("/handleDisconnect", s.handleDisconnect)
			rpc.POST("/handleReconnect", s.handleReconnect)
		}
	}

	game := r.Group("/game")
	{
		game.POST("/init", s.initGame)
		game.POST("/iterate", s.iterateGame)
		game.POST("/second-half", s.secondHalf)
		game.GET("/state", s.gameState)
	}

	return r
}

// requireCaller extracts the opaque authenticated caller identity. The
// gateway in front of this service fills X-User-Id after verifying the token;
// absence rejects every operation.
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, matchdto.ErrorBody{
				Error: matchdto.ErrorInfo{Kind: matchdto.KindUnauthenticated, Message: "authentication required"},
			})
			return
		}
		c.Set("uid", uid)
		c.Next()
	}
}

func callerID(c *gin.Context) string {
	v, _ := c.Get("uid")
	s, _ := v.(string)
	return s
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obslog.L().Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func writeErr(c *gin.Context, status int, kind, message string) {
	c.JSON(status, matchdto.ErrorBody{Error: matchdto.ErrorInfo{Kind: kind, Message: message}})
}

// writeDomainErr maps core errors onto the HTTP error taxonomy.
func writeDomainErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrUnauthenticated):
		writeErr(c, http.StatusUnauthorized, matchdto.KindUnauthenticated, err.Error())
	case errors.Is(err, match.ErrNotParticipant):
		writeErr(c, http.StatusForbidden, matchdto.KindForbidden, err.Error())
	case errors.Is(err, match.ErrNotFound), errors.Is(err, queue.ErrNotQueued), errors.Is(err, simengine.ErrSessionNotFound):
		writeErr(c, http.StatusNotFound, matchdto.KindNotFound, err.Error())
	case errors.Is(err, match.ErrNotActive), errors.Is(err, match.ErrBadTransition):
		writeErr(c, http.StatusConflict, matchdto.KindPrecondition, err.Error())
	case errors.Is(err, match.ErrInvalidWinner), errors.Is(err, match.ErrInvalidArgs), errors.Is(err, queue.ErrInvalidArgs):
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, err.Error())
	case errors.Is(err, redis.TxFailedErr):
		writeErr(c, http.StatusConflict, matchdto.KindPrecondition, "concurrent update, retry")
	default:
		obslog.L().Error("http_internal_error", zap.Error(err))
		writeErr(c, http.StatusInternalServerError, matchdto.KindInternal, "internal error")
	}
}
