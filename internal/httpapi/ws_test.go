package httpapi

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "nhooyr.io/websocket"

    "github.com/park285/kickoff-server/internal/match"
)

func TestWatchMatchStreamsSnapshotThenMutations(t *testing.T) {
    r, m := newTestAPI(t)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    doc, err := m.CreateFromPairing(ctx,
        match.Player{ID: "u1", DisplayName: "Home", Rating: 1200},
        match.Player{ID: "u2", DisplayName: "Away", Rating: 1200},
    )
    if err != nil { t.Fatalf("CreateFromPairing: %v", err) }

    srv := httptest.NewServer(r)
    t.Cleanup(srv.Close)

    wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/match/" + doc.ID
    conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
        HTTPHeader: http.Header{"X-User-Id": []string{"u1"}},
    })
    if err != nil { t.Fatalf("dial: %v", err) }
    defer conn.Close(websocket.StatusNormalClosure, "")

    _, raw, err := conn.Read(ctx)
    if err != nil { t.Fatalf("read snapshot: %v", err) }
    var snap match.Match
    if err := json.Unmarshal(raw, &snap); err != nil { t.Fatalf("decode snapshot: %v", err) }
    if snap.ID != doc.ID || snap.Status != match.StatusWaiting {
        t.Fatalf("unexpected snapshot: id=%s status=%s", snap.ID, snap.Status)
    }

    if _, err := m.SetReady(ctx, "u1", doc.ID); err != nil { t.Fatalf("SetReady: %v", err) }

    _, raw, err = conn.Read(ctx)
    if err != nil { t.Fatalf("read event: %v", err) }
    var ev match.Match
    if err := json.Unmarshal(raw, &ev); err != nil { t.Fatalf("decode event: %v", err) }
    if !ev.PlayerByID("u1").Ready {
        t.Fatalf("mutation event missing the committed change: %+v", ev.Players)
    }
}

func TestWatchMatchRejectsOutsider(t *testing.T) {
    r, m := newTestAPI(t)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    doc, err := m.CreateFromPairing(ctx, match.Player{ID: "u1", Rating: 1200}, match.Player{ID: "u2", Rating: 1200})
    if err != nil { t.Fatalf("CreateFromPairing: %v", err) }

    srv := httptest.NewServer(r)
    t.Cleanup(srv.Close)

    wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/match/" + doc.ID
    _, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
        HTTPHeader: http.Header{"X-User-Id": []string{"outsider"}},
    })
    if err == nil { t.Fatalf("outsider dial should fail") }
    if resp == nil || resp.StatusCode != http.StatusForbidden {
        t.Fatalf("expected 403 for outsider, got %+v", resp)
    }
}
