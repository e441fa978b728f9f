package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/realtime"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/messaging"
)

type wsEnvelope struct {
	Type string       `json:"type"`
	Data ErrorPayload `json:"data"`
}

func dialWS(t *testing.T, profile int64) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(realtime.NewMemoryPresence(), nil)
	go func() { _ = hub.RunWithContext(ctx) }()

	uc := messaging.NewMessagingUseCase(nil, nil, nil, hub, messaging.Config{}, nil)
	h := NewWSHandler(hub, uc, []string{"*"}, nil)

	r := gin.New()
	r.GET("/ws", withProfile(profile), h.Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg interface{}) wsEnvelope {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWSRejectsInvalidIntents(t *testing.T) {
	conn := dialWS(t, 1)

	tests := []struct {
		name     string
		msg      map[string]interface{}
		wantCode string
	}{
		{
			name:     "missing payload",
			msg:      map[string]interface{}{"type": domain.IntentRoomJoin},
			wantCode: CodeInvalidInput,
		},
		{
			name:     "malformed room id",
			msg:      map[string]interface{}{"type": domain.IntentRoomJoin, "data": map[string]string{"roomId": "abc"}},
			wantCode: CodeInvalidInput,
		},
		{
			name:     "foreign room",
			msg:      map[string]interface{}{"type": domain.IntentRoomJoin, "data": map[string]string{"roomId": "2_3"}},
			wantCode: CodeForbidden,
		},
		{
			name:     "empty read list",
			msg:      map[string]interface{}{"type": domain.IntentMessageRead, "data": map[string]interface{}{"roomId": "1_2", "messageIds": []int64{}}},
			wantCode: CodeInvalidInput,
		},
		{
			name:     "unknown type",
			msg:      map[string]interface{}{"type": "typing:start"},
			wantCode: CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := roundTrip(t, conn, tt.msg)
			if env.Type != domain.EventError {
				t.Fatalf("unexpected event: got %q want %q", env.Type, domain.EventError)
			}
			if env.Data.Code != tt.wantCode {
				t.Fatalf("unexpected code: got %q want %q", env.Data.Code, tt.wantCode)
			}
		})
	}
}

func TestWSSendErrorEchoesClientID(t *testing.T) {
	conn := dialWS(t, 1)

	env := roundTrip(t, conn, map[string]interface{}{
		"type": domain.IntentMessageSend,
		"data": map[string]string{"roomId": "1_2", "content": "   ", "clientId": "c-1"},
	})
	if env.Type != domain.EventError || env.Data.Code != CodeInvalidInput {
		t.Fatalf("unexpected event: %+v", env)
	}
	if env.Data.ClientID == nil || *env.Data.ClientID != "c-1" {
		t.Fatalf("client id not echoed: %+v", env.Data.ClientID)
	}
}

func TestWSPing(t *testing.T) {
	conn := dialWS(t, 1)

	env := roundTrip(t, conn, map[string]string{"type": domain.IntentPing})
	if env.Type != domain.EventPong {
		t.Fatalf("unexpected event: got %q want %q", env.Type, domain.EventPong)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest("GET", "/ws", nil)
	if !check(req) {
		t.Fatalf("request without origin must pass")
	}
	req.Header.Set("Origin", "https://app.example.com")
	if !check(req) {
		t.Fatalf("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Fatalf("foreign origin accepted")
	}
}
