package httpapi

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/gin-gonic/gin"
    "github.com/redis/go-redis/v9"

    "github.com/park285/kickoff-server/internal/match"
    "github.com/park285/kickoff-server/internal/queue"
    "github.com/park285/kickoff-server/internal/simengine"
    "github.com/park285/kickoff-server/pkg/matchdto"
)

type fakeEngine struct{}

func (fakeEngine) InitiateGame(_ context.Context, _, _, _ json.RawMessage) (json.RawMessage, error) {
    return json.RawMessage(`{"half":1,"tick":0}`), nil
}
func (fakeEngine) PlayIteration(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
    return json.RawMessage(`{"half":1,"tick":1}`), nil
}
func (fakeEngine) StartSecondHalf(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
    return json.RawMessage(`{"half":2,"tick":0}`), nil
}

func newTestAPI(t *testing.T) (*gin.Engine, *match.Manager) {
    t.Helper()
    gin.SetMode(gin.TestMode)
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })

    q := queue.NewStore(rdb, 5*time.Minute, 30*time.Second, 1200)
    m := match.NewManager(rdb, 24*time.Hour, 60*time.Second)
    sessions := simengine.NewSessionStore(rdb, time.Hour)
    srv := NewServer(q, m, nil, fakeEngine{}, sessions)
    return srv.Router(), m
}

func doJSON(t *testing.T, r *gin.Engine, method, path, uid string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var buf bytes.Buffer
    if body != nil {
        if err := json.NewEncoder(&buf).Encode(body); err != nil { t.Fatalf("encode: %v", err) }
    }
    req := httptest.NewRequest(method, path, &buf)
    req.Header.Set("Content-Type", "application/json")
    if uid != "" {
        req.Header.Set("X-User-Id", uid)
    }
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)
    return w
}

func TestQueueJoinRequiresAuth(t *testing.T) {
    r, _ := newTestAPI(t)
    w := doJSON(t, r, http.MethodPost, "/queue/join", "", matchdto.JoinQueueRequest{DisplayName: "A"})
    if w.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401 without caller identity, got %d", w.Code)
    }
    var body matchdto.ErrorBody
    if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil { t.Fatalf("decode: %v", err) }
    if body.Error.Kind != matchdto.KindUnauthenticated {
        t.Fatalf("expected unauthenticated kind, got %q", body.Error.Kind)
    }
}

func TestQueueJoinLeave(t *testing.T) {
    r, _ := newTestAPI(t)
    w := doJSON(t, r, http.MethodPost, "/queue/join", "u1", matchdto.JoinQueueRequest{DisplayName: "A"})
    if w.Code != http.StatusOK { t.Fatalf("join: %d %s", w.Code, w.Body.String()) }
    var resp matchdto.JoinQueueResponse
    if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if resp.Rating != 1200 || resp.Status != "waiting" {
        t.Fatalf("unexpected join response: %+v", resp)
    }

    if w := doJSON(t, r, http.MethodPost, "/queue/leave", "u1", nil); w.Code != http.StatusOK {
        t.Fatalf("leave: %d", w.Code)
    }
    if w := doJSON(t, r, http.MethodPost, "/queue/leave", "u1", nil); w.Code != http.StatusNotFound {
        t.Fatalf("second leave should 404, got %d", w.Code)
    }
}

func TestCompleteMatchErrorMapping(t *testing.T) {
    r, m := newTestAPI(t)
    ctx := context.Background()

    w := doJSON(t, r, http.MethodPost, "/rpc/completeMatch", "u1", matchdto.CompleteMatchRequest{MatchID: "missing", WinnerID: "u1"})
    if w.Code != http.StatusNotFound { t.Fatalf("missing match should 404, got %d", w.Code) }

    doc, err := m.CreateFromPairing(ctx, match.Player{ID: "u1", Rating: 1200}, match.Player{ID: "u2", Rating: 1200})
    if err != nil { t.Fatalf("CreateFromPairing: %v", err) }

    w = doJSON(t, r, http.MethodPost, "/rpc/completeMatch", "outsider", matchdto.CompleteMatchRequest{MatchID: doc.ID, WinnerID: "u1"})
    if w.Code != http.StatusForbidden { t.Fatalf("outsider should 403, got %d", w.Code) }

    w = doJSON(t, r, http.MethodPost, "/rpc/completeMatch", "u1", matchdto.CompleteMatchRequest{MatchID: doc.ID, WinnerID: "u1"})
    if w.Code != http.StatusConflict { t.Fatalf("waiting match should 409, got %d", w.Code) }
}

func TestGameSessionEndpoints(t *testing.T) {
    r, _ := newTestAPI(t)

    w := doJSON(t, r, http.MethodPost, "/game/init", "", matchdto.InitGameRequest{
        Team1: json.RawMessage(`{"name":"Reds"}`),
        Team2: json.RawMessage(`{"name":"Blues"}`),
    })
    if w.Code != http.StatusOK { t.Fatalf("init: %d %s", w.Code, w.Body.String()) }
    var resp matchdto.GameSessionResponse
    if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if resp.SessionID == "" { t.Fatalf("expected session id") }

    w = doJSON(t, r, http.MethodPost, "/game/iterate", "", matchdto.SessionIDRequest{SessionID: resp.SessionID})
    if w.Code != http.StatusOK { t.Fatalf("iterate: %d %s", w.Code, w.Body.String()) }

    w = doJSON(t, r, http.MethodGet, "/game/state?session_id="+resp.SessionID, "", nil)
    if w.Code != http.StatusOK { t.Fatalf("state: %d", w.Code) }

    w = doJSON(t, r, http.MethodPost, "/game/iterate", "", matchdto.SessionIDRequest{SessionID: "gone"})
    if w.Code != http.StatusNotFound { t.Fatalf("unknown session should 404, got %d", w.Code) }
}
