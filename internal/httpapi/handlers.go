package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/kickoff-server/internal/match"
	"github.com/park285/kickoff-server/internal/queue"
	"github.com/park285/kickoff-server/pkg/matchdto"
)

func (s *Server) joinQueue(c *gin.Context) {
	var req matchdto.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "invalid request body")
		return
	}
	uid := callerID(c)

	rating := req.Rating
	if rating <= 0 && s.repo != nil {
		// 프로필이 있으면 저장된 레이팅으로 등록
		if p, err := s.repo.GetProfile(c.Request.Context(), uid); err == nil && p != nil {
			rating = p.Rating
		}
	}

	entry, err := s.queue.Enqueue(c.Request.Context(), uid, queue.Profile{
		DisplayName: req.DisplayName,
		Rating:      rating,
		TeamID:      req.TeamID,
	})
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, matchdto.JoinQueueResponse{
		UserID:   entry.UserID,
		Rating:   entry.Rating,
		JoinedAt: entry.JoinedAt.Format(time.RFC3339),
		Status:   string(entry.Status),
	})
}

func (s *Server) leaveQueue(c *gin.Context) {
	if err := s.queue.Dequeue(c.Request.Context(), callerID(c)); err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) getMatch(c *gin.Context) {
	doc, err := s.matches.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) ready(c *gin.Context) {
	var req matchdto.MatchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id is required")
		return
	}
	doc, err := s.matches.SetReady(c.Request.Context(), callerID(c), req.MatchID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) activate(c *gin.Context) {
	var req matchdto.MatchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id is required")
		return
	}
	doc, err := s.matches.Activate(c.Request.Context(), callerID(c), req.MatchID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) completeMatch(c *gin.Context) {
	var req matchdto.CompleteMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" || req.WinnerID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id and winner_id are required")
		return
	}
	doc, err := s.matches.Complete(c.Request.Context(), callerID(c), req.MatchID, req.WinnerID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, matchdto.CompleteMatchResponse{
		Success:      true,
		Winner:       doc.Winner,
		FinalRatings: doc.FinalRatings,
	})
}

func (s *Server) validateGameState(c *gin.Context) {
	var req matchdto.ValidateGameStateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" || len(req.GameState) == 0 {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id and game_state are required")
		return
	}
	var st match.GameState
	if err := json.Unmarshal(req.GameState, &st); err != nil {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "game_state is not a valid state object")
		return
	}
	if err := s.matches.ValidateGameState(c.Request.Context(), callerID(c), req.MatchID, &st); err != nil {
		switch err {
		case match.ErrScoreNegative, match.ErrTimeOutOfRange:
			writeErr(c, http.StatusBadRequest, matchdto.KindValidation, err.Error())
		case match.ErrUnauthenticated, match.ErrNotFound, match.ErrNotParticipant, match.ErrInvalidArgs:
			writeDomainErr(c, err)
		default:
			// position bound violations carry the offending player key
			writeErr(c, http.StatusBadRequest, matchdto.KindValidation, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, matchdto.ValidateGameStateResponse{Valid: true})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	var req matchdto.MatchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id is required")
		return
	}
	doc, err := s.matches.HandleDisconnect(c.Request.Context(), callerID(c), req.MatchID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleReconnect(c *gin.Context) {
	var req matchdto.MatchIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MatchID == "" {
		writeErr(c, http.StatusBadRequest, matchdto.KindBadInput, "match_id is required")
		return
	}
	doc, err := s.matches.HandleReconnect(c.Request.Context(), callerID(c), req.MatchID)
	if err != nil {
		writeDomainErr(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
