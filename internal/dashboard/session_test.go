package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))

	if store.Load().Authenticated() {
		t.Fatalf("missing file must mean unauthenticated")
	}

	s := Session{
		AccessToken: "tok123",
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
		User:        SessionUser{ID: "u1", Username: "admin", Role: "admin"},
	}
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()
	if !loaded.Authenticated() || loaded.AccessToken != "tok123" || loaded.User.Username != "admin" {
		t.Fatalf("unexpected session: %+v", loaded)
	}
	if !loaded.User.IsAdmin() {
		t.Fatalf("expected admin session")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Load().Authenticated() {
		t.Fatalf("expected unauthenticated after clear")
	}
	// 重复 Clear 不报错
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestSessionStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewSessionStore(path)

	// 损坏的会话文件视为未登录，不 panic 不报错
	if store.Load().Authenticated() {
		t.Fatalf("corrupt file must mean unauthenticated")
	}
}

func TestLoginStoresSessionAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "admin" || body["password"] != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(loginResponse{
			AccessToken: "tok123",
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        SessionUser{ID: "u1", Username: "admin", Role: "admin"},
		})
	}))
	defer srv.Close()

	store := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))
	client := NewClient(srv.URL, 5*time.Second)

	if _, err := client.Login(context.Background(), store, "admin", "wrong"); err == nil {
		t.Fatalf("expected login failure")
	}

	s, err := client.Login(context.Background(), store, "admin", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.User.Role != "admin" || client.Token() != "tok123" {
		t.Fatalf("expected token installed on client")
	}

	// 新 client 从会话文件恢复
	fresh := NewClient(srv.URL, 5*time.Second)
	resumed := fresh.Resume(store)
	if !resumed.Authenticated() || fresh.Token() != "tok123" {
		t.Fatalf("expected session resumed from store")
	}

	if err := fresh.Logout(store); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if fresh.Token() != "" || store.Load().Authenticated() {
		t.Fatalf("expected cleared session after logout")
	}
}
