package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/kickoff-server/pkg/matchdto"
)

// Simulation session endpoints. The engine is an external black box; this
// service only parks its opaque matchState blobs under a session id.

func (s *Server) initGame(c *gin.Context) {
	if s.engine == nil || s.sessions == nil {
		writeErr(c, http.StatusServiceUnavailable, matchdto.KindInternal, "simulation engine not configured")
		return
	}
	var req matchdto.InitGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Team1) == 0 || len(req.Team2) == 0 {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "team1 and team2 are required")
		return
	}
	state, err := s.engine.InitiateGame(c.Request.Context(), req.Team1, req.Team2, req.PitchConfig)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	id, err := s.sessions.Create(c.Request.Context(), state)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, matchdto.GameSessionResponse{SessionID: id, MatchState: state})
}

func (s *Server) iterateGame(c *gin.Context) {
	s.advanceGame(c, func(state []byte) ([]byte, error) {
		return s.engine.PlayIteration(c.Request.Context(), state)
	})
}

func (s *Server) secondHalf(c *gin.Context) {
	s.advanceGame(c, func(state []byte) ([]byte, error) {
		return s.engine.StartSecondHalf(c.Request.Context(), state)
	})
}

func (s *Server) advanceGame(c *gin.Context, step func([]byte) ([]byte, error)) {
	if s.engine == nil || s.sessions == nil {
		writeErr(c, http.StatusServiceUnavailable, matchdto.KindInternal, "simulation engine not configured")
		return
	}
	var req matchdto.SessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "session_id is required")
		return
	}
	state, err := s.sessions.Load(c.Request.Context(), req.SessionID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	next, err := step(state)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	if err := s.sessions.Save(c.Request.Context(), req.SessionID, next); err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, matchdto.GameSessionResponse{SessionID: req.SessionID, MatchState: next})
}

func (s *Server) gameState(c *gin.Context) {
	if s.sessions == nil {
		writeErr(c, http.StatusServiceUnavailable, matchdto.KindInternal, "simulation engine not configured")
		return
	}
	id := c.Query("session_id")
	if id == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "session_id is required")
		return
	}
	state, err := s.sessions.Load(c.Request.Context(), id)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, matchdto.GameSessionResponse{SessionID: id, MatchState: state})
}
