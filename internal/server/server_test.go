package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/familyfeed/internal/config"
	"github.com/dukerupert/familyfeed/internal/database"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Auth.LoginRateLimit = 3
	cfg.Auth.LoginRateWindow = time.Minute
	return New(db, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func request(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testServer(t).Router()
	rec := request(t, h, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestEndToEnd(t *testing.T) {
	h := testServer(t).Router()

	rec := request(t, h, "POST", "/api/signup", "", map[string]string{"username": "alice", "password": "s3cret-pass"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &session)

	if rec := request(t, h, "GET", "/api/family-members", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list: status = %d, want 401", rec.Code)
	}

	rec = request(t, h, "POST", "/api/family-members", session.Token, map[string]string{
		"name": "Ann", "relationship": "Mother", "date_of_birth": "1955-07-04",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	rec = request(t, h, "GET", "/api/family-members", session.Token, nil)
	var members []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &members)
	if len(members) != 1 || members[0]["name"] != "Ann" {
		t.Errorf("members = %v", members)
	}

	if rec := request(t, h, "POST", "/api/family-members/x/birth-chart", session.Token, nil); rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("birth chart route without s3: status = %d", rec.Code)
	}

	if rec := request(t, h, "DELETE", "/api/account", session.Token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete account: %d %s", rec.Code, rec.Body.String())
	}
	if rec := request(t, h, "GET", "/api/me", session.Token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after delete: status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := testServer(t).Router()
	body := map[string]string{"username": "nobody", "password": "whatever-pass"}

	for i := 0; i < 3; i++ {
		if rec := request(t, h, "POST", "/api/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, rec.Code)
		}
	}
	if rec := request(t, h, "POST", "/api/login", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("4th attempt: status = %d, want 429", rec.Code)
	}
}
