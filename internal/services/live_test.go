package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"cattube/internal/events"
	"cattube/internal/metrics"
	"cattube/internal/middleware"
	"cattube/internal/models"
	"cattube/internal/websocket"
)

func TestReconcile_ReachesSocketWithoutRedis(t *testing.T) {
	jwt := middleware.NewJWTAuth("jwt-secret")
	hub := websocket.NewHub(nil, jwt, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	svc := NewVideoService(newPebbleStore(t).Videos(), testConfig(true), events.NewLocalPublisher(hub), metrics.New())
	ctx := context.Background()
	owner := uuid.New()
	v, err := svc.Create(ctx, owner, models.CreateVideoRequest{Title: "Cat", AssemblyID: "abc123"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	token, _ := jwt.GenerateAccessToken(owner, "whiskers")
	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(owner) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("socket was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := svc.Reconcile(ctx, signedNotification(completedPayload)); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type    string                 `json:"type"`
		Payload models.VideoTranscoded `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if msg.Type != models.EventVideoTranscoded || msg.Payload.VideoID != v.ID {
		t.Fatalf("unexpected message %s", data)
	}
	if msg.Payload.TranscodedURL != "https://cdn.example/watermarked/abc123/out.mp4" {
		t.Fatalf("unexpected transcoded url %q", msg.Payload.TranscodedURL)
	}
}
