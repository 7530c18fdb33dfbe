package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"inkwell/api/internal/store"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	sessionStore, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return sessionStore, s
}

func TestSaveAndLookupSession(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	user := store.User{
		ID:          "usr_1",
		Email:       "avery@example.com",
		DisplayName: "Avery",
		Role:        "author",
	}

	if err := sessionStore.SaveSession(ctx, "hash-1", user, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := sessionStore.LookupSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email || got.Role != user.Role {
		t.Fatalf("LookupSession = %+v, want %+v", got, user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	user := store.User{ID: "usr_2"}
	if err := sessionStore.SaveSession(ctx, "hash-2", user, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, err := sessionStore.LookupSession(ctx, "hash-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	ctx := context.Background()
	if err := sessionStore.SaveSession(ctx, "hash-3", store.User{ID: "usr_3"}, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := sessionStore.RevokeSession(ctx, "hash-3"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := sessionStore.LookupSession(ctx, "hash-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}

	// Revoking again is a no-op.
	if err := sessionStore.RevokeSession(ctx, "hash-3"); err != nil {
		t.Fatalf("second RevokeSession failed: %v", err)
	}
}

func TestSaveRejectsAlreadyExpired(t *testing.T) {
	sessionStore, s := setupTestRedis(t)
	defer sessionStore.Close()
	defer s.Close()

	err := sessionStore.SaveSession(context.Background(), "hash-4", store.User{ID: "usr_4"}, time.Now().Add(-time.Minute))
	if err == nil {
		t.Fatal("expected error saving an already-expired session")
	}
}
