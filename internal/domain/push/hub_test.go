package push

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	jwtsvc "casevault/internal/pkg/jwt"
)

func setupWSServer(t *testing.T) (*Hub, *httptest.Server, *jwtsvc.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	j := jwtsvc.New("test-secret", time.Hour)

	r := gin.New()
	NewWSHandler(hub, j).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv, j
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/claims?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return m
}

func identify(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"type": "identify"}); err != nil {
		t.Fatalf("identify write failed: %v", err)
	}
	m := readMessage(t, conn)
	if m["type"] != "identified" {
		t.Fatalf("expected identified ack, got %v", m)
	}
}

func waitForConns(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d connections, got %d", n, hub.ConnCount())
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	_, srv, _ := setupWSServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/claims"
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial to fail without token")
	} else if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestWebSocketRejectsNonStaffRole(t *testing.T) {
	_, srv, j := setupWSServer(t)

	token, err := j.GenerateToken(42, "player")
	if err != nil {
		t.Fatal(err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/claims?token=" + token
	if _, resp, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial to fail for non-staff role")
	} else if resp == nil || resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %v", resp)
	}
}

func TestIdentifyHandshake(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	token, err := j.GenerateToken(7, "admin")
	if err != nil {
		t.Fatal(err)
	}
	conn := dialWS(t, srv, token)
	waitForConns(t, hub, 1)

	if err := conn.WriteJSON(map[string]string{"type": "identify"}); err != nil {
		t.Fatal(err)
	}
	m := readMessage(t, conn)
	if m["type"] != "identified" || m["viewer_id"] != float64(7) {
		t.Fatalf("unexpected ack: %v", m)
	}
}

func TestPublishReachesIdentifiedStaff(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	adminToken, _ := j.GenerateToken(1, "admin")
	modToken, _ := j.GenerateToken(2, "moderator")

	admin := dialWS(t, srv, adminToken)
	mod := dialWS(t, srv, modToken)
	waitForConns(t, hub, 2)
	identify(t, admin)
	identify(t, mod)

	hub.Publish(&Event{
		Type:      EventClaimCreated,
		Room:      RoomStaff,
		Timestamp: time.Now(),
		Payload:   map[string]string{"id": "c1"},
	})

	for _, conn := range []*websocket.Conn{admin, mod} {
		m := readMessage(t, conn)
		if m["type"] != string(EventClaimCreated) {
			t.Fatalf("expected claim:created, got %v", m)
		}
		payload := m["payload"].(map[string]any)
		if payload["id"] != "c1" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	}
}

func TestPublishSkipsUnidentifiedConnections(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	token1, _ := j.GenerateToken(1, "admin")
	token2, _ := j.GenerateToken(2, "admin")

	identified := dialWS(t, srv, token1)
	silent := dialWS(t, srv, token2)
	waitForConns(t, hub, 2)
	identify(t, identified)

	hub.Publish(&Event{Type: EventClaimCreated, Room: RoomStaff, Timestamp: time.Now()})

	if m := readMessage(t, identified); m["type"] != string(EventClaimCreated) {
		t.Fatalf("expected event on identified conn, got %v", m)
	}

	silent.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := silent.ReadMessage(); err == nil {
		t.Fatal("expected no delivery before identify")
	}
}

func TestPublishViewerRoom(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	token1, _ := j.GenerateToken(1, "admin")
	token2, _ := j.GenerateToken(2, "admin")

	target := dialWS(t, srv, token1)
	other := dialWS(t, srv, token2)
	waitForConns(t, hub, 2)
	identify(t, target)
	identify(t, other)

	hub.Publish(&Event{Type: EventClaimStatusChanged, Room: ViewerRoom(1), Timestamp: time.Now()})

	if m := readMessage(t, target); m["type"] != string(EventClaimStatusChanged) {
		t.Fatalf("expected event for viewer 1, got %v", m)
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("expected no delivery to a different viewer room")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	token, _ := j.GenerateToken(1, "admin")
	conn := dialWS(t, srv, token)
	waitForConns(t, hub, 1)

	conn.Close()
	waitForConns(t, hub, 0)
}

func TestPingPong(t *testing.T) {
	hub, srv, j := setupWSServer(t)

	token, _ := j.GenerateToken(1, "admin")
	conn := dialWS(t, srv, token)
	waitForConns(t, hub, 1)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatal(err)
	}
	if m := readMessage(t, conn); m["type"] != "pong" {
		t.Fatalf("expected pong, got %v", m)
	}
}
