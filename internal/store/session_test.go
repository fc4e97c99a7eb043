package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/familyfeed/internal/database"
)

func setupSessionTestDB(t *testing.T, ttl time.Duration) (*SessionStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db, ttl), NewUserStore(db)
}

func TestSessionCreate(t *testing.T) {
	ss, us := setupSessionTestDB(t, 0)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice", "", "", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(ctx, u.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", sess.UserID, u.ID)
	}
	if time.Until(sess.ExpiresAt) < DefaultSessionTTL-time.Minute {
		t.Errorf("expires_at = %v, want about %v from now", sess.ExpiresAt, DefaultSessionTTL)
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, us := setupSessionTestDB(t, 0)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice", "", "", "hash")
	created, _ := ss.Create(ctx, u.ID)

	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID {
		t.Errorf("id = %d, want %d", sess.ID, created.ID)
	}
}

func TestSessionGetByTokenNotFound(t *testing.T) {
	ss, _ := setupSessionTestDB(t, 0)

	sess, err := ss.GetByToken(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for nonexistent token")
	}
}

func TestSessionExpired(t *testing.T) {
	ss, us := setupSessionTestDB(t, time.Millisecond)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice", "", "", "hash")
	created, _ := ss.Create(ctx, u.ID)
	time.Sleep(20 * time.Millisecond)

	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected expired session to be ignored")
	}

	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t, 0)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice", "", "", "hash")
	created, _ := ss.Create(ctx, u.ID)

	if err := ss.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss, us := setupSessionTestDB(t, 0)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice", "", "", "hash")
	ss.Create(ctx, u.ID)
	ss.Create(ctx, u.ID)

	if err := ss.DeleteByUserID(ctx, u.ID); err != nil {
		t.Fatalf("delete by user id: %v", err)
	}

	var count int
	ss.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id = ?`, u.ID).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 sessions, got %d", count)
	}
}

func TestSessionCountActive(t *testing.T) {
	ss, us := setupSessionTestDB(t, time.Hour)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice", "", "", "hash")
	first, _ := ss.Create(ctx, u.ID)
	ss.Create(ctx, u.ID)
	ss.db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), first.ID)

	n, err := ss.CountActive(ctx, u.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("active sessions = %d, want 1", n)
	}
	if n, _ := ss.CountActive(ctx, "nobody"); n != 0 {
		t.Errorf("unknown user sessions = %d, want 0", n)
	}
}
