package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cattube/internal/middleware"
	"cattube/internal/models"
)

func TestOriginAllowed(t *testing.T) {
	trusted := []string{"https://cattube.example.com"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://app.local", true},
		{"https://cattube.example.com", true},
		{"https://evil.com", false},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://app.local/api/v1/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := originAllowed(req, trusted); got != tc.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestHub_RejectsMissingOrBadToken(t *testing.T) {
	hub := NewHub(nil, middleware.NewJWTAuth("secret"), nil)

	for _, target := range []string{"/api/v1/ws", "/api/v1/ws?token=garbage"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rr.Code)
		}
	}
}

func TestHub_DeliversToOwner(t *testing.T) {
	jwt := middleware.NewJWTAuth("secret")
	hub := NewHub(nil, jwt, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	owner := uuid.New()
	token, _ := jwt.GenerateAccessToken(owner, "whiskers")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(owner) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.SendToUser(owner, models.WSMessage{Type: models.EventVideoTranscoded, Payload: map[string]string{"assembly_id": "abc"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"video.transcoded"`) {
		t.Fatalf("unexpected message %s", data)
	}
}
