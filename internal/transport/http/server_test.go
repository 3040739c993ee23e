package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"yearguess/internal/app"
	"yearguess/internal/config"
	"yearguess/internal/quiz"
)

type stubConn struct{ id string }

func (c stubConn) Send(interface{}) error { return nil }

func (c stubConn) GetConnID() string { return c.id }

func (c stubConn) Close() error { return nil }

func newTestHandler(t *testing.T) (http.Handler, *app.GameHub, *quiz.Manager) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	hub := app.NewGameHub(app.Options{
		Limits: app.Limits{SweepInterval: 24 * time.Hour},
		Clock:  clock,
	}, zerolog.Nop())
	t.Cleanup(hub.Close)

	quizzes := quiz.NewManager(time.Hour, nil, clock, zerolog.Nop())

	srv := NewServer(config.Default(), hub, quizzes, http.NotFoundHandler(), zerolog.Nop())
	return srv.Handler(http.NotFoundHandler()), hub, quizzes
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndHeaders(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestGetRoom(t *testing.T) {
	h, hub, _ := newTestHandler(t)

	session, err := hub.CreateRoom(stubConn{id: "host"})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	code := session.GetRoomCode()

	rec := do(t, h, http.MethodGet, "/api/rooms/"+strings.ToLower(code), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var got GetRoomResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RoomCode != code || got.Phase != "lobby" || got.PlayerCount != 0 {
		t.Errorf("unexpected room %+v", got)
	}
	if got.InviteLink != "http://example.com/join/"+code {
		t.Errorf("invite link = %q", got.InviteLink)
	}

	if rec := do(t, h, http.MethodGet, "/api/rooms/ZZZZZZ", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing room status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/rooms/ab!", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad code status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/rooms/"+code+"/qr", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr status = %d type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("qr body is not a PNG")
	}
}

func TestInviteLinkScheme(t *testing.T) {
	tests := []struct {
		proto string
		want  string
	}{
		{"", "http://example.com/join/ABC123"},
		{"https", "https://example.com/join/ABC123"},
		{"HTTPS", "https://example.com/join/ABC123"},
		{"javascript", "http://example.com/join/ABC123"},
		{"ftp://evil.example/x?", "http://example.com/join/ABC123"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms/ABC123", nil)
		if tt.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tt.proto)
		}
		if got := inviteLink(req, "ABC123"); got != tt.want {
			t.Errorf("X-Forwarded-Proto %q: inviteLink = %q, want %q", tt.proto, got, tt.want)
		}
	}
}

func TestQuizEndpoints(t *testing.T) {
	h, _, quizzes := newTestHandler(t)

	body := []byte(`{"title":"T","questions":[{"question":"Q","options":["a","b"],"correctAnswer":0}]}`)
	rec := do(t, h, http.MethodPost, "/api/quiz", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var created CreateQuizResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !quizzes.Exists(created.GamePin) {
		t.Fatalf("pin %q not registered", created.GamePin)
	}

	if rec := do(t, h, http.MethodGet, "/api/quiz/"+created.GamePin, nil); rec.Code != http.StatusOK {
		t.Errorf("get quiz status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/quiz/000000x", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing quiz status = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/quiz", []byte(`{"questions":[]}`)); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid quiz status = %d", rec.Code)
	}

	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	if rec := do(t, h, http.MethodPost, "/api/quiz", big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized body status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/stats", nil)
	var stats StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.ActiveQuizzes != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
