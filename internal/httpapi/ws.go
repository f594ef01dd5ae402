package httpapi

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/kickoff-server/internal/obslog"
)

// watchMatch streams the match document to a participant: one snapshot on
// connect, then the full document again after every committed mutation
// (published by the store on the match's pubsub channel).
func (s *Server) watchMatch(c *gin.Context) {
	uid := callerID(c)
	matchID := c.Param("id")

	if _, err := s.matches.Get(c.Request.Context(), uid, matchID); err != nil {
		writeDomainErr(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("match_id", matchID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	// 클라이언트는 보내지 않음: 읽기는 종료 감지용
	ctx := conn.CloseRead(c.Request.Context())

	// subscribe before the snapshot read so a mutation committed in between
	// is delivered as an event instead of silently lost
	sub := s.matches.Store().Subscribe(ctx, matchID)
	defer func() { _ = sub.Close() }()
	events := sub.Channel()

	doc, err := s.matches.Get(ctx, uid, matchID)
	if err != nil {
		return
	}
	snapshot, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, snapshot); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
