package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/spellbook-app/session-gateway/internal/domain/session/model"
)

func newStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	t.Cleanup(mr.Close)

	client := redisv9.NewClient(&redisv9.Options{
		Addr: mr.Addr(),
	})
	return NewRedisSessionStore(client, time.Hour), mr
}

func TestRedisSessionStore_SetGet(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	err := store.Set(ctx, "sid1", model.Session{
		AccessToken:  "acc",
		RefreshToken: "ref",
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	// durable keys are plain strings under the documented names
	if got, _ := mr.Get("session:sid1:access_token"); got != "acc" {
		t.Fatalf("access_token key: want acc, got %q", got)
	}
	if got, _ := mr.Get("session:sid1:refresh_token"); got != "ref" {
		t.Fatalf("refresh_token key: want ref, got %q", got)
	}

	s, ok, err := store.Get(ctx, "sid1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if !ok {
		t.Fatal("session should be present after Set")
	}
	if s.AccessToken != "acc" || s.RefreshToken != "ref" {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestRedisSessionStore_GetAbsent(t *testing.T) {
	store, _ := newStore(t)

	_, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if ok {
		t.Fatal("absent session must not be reported present")
	}
}

func TestRedisSessionStore_Clear(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sid2", model.Session{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Clear(ctx, "sid2"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	_, ok, err := store.Get(ctx, "sid2")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if ok {
		t.Fatal("session should be gone after Clear")
	}
}

func TestRedisSessionStore_TTLExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sid3", model.Session{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, ok, err := store.Get(ctx, "sid3")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if ok {
		t.Fatal("session should have expired with the store TTL")
	}
}
