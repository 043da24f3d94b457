package conversation

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedisStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStateStore(client), mr
}

func TestRedisStateStoreRoundTrip(t *testing.T) {
	store, _ := testRedisStore(t)
	ctx := context.Background()

	st := &State{
		Intent:      IntentReschedule,
		PatientType: PatientReturning,
		CustomerID:  "CUST042",
		Name:        "Asha Rao",
		Awaiting:    FieldNewDate,
	}
	if err := store.Save(ctx, "sess-1", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *loaded != *st {
		t.Fatalf("round trip mismatch:\nsaved  %+v\nloaded %+v", *st, *loaded)
	}
}

func TestRedisStateStoreUnknownSessionIsFresh(t *testing.T) {
	store, _ := testRedisStore(t)

	st, err := store.Load(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *st != (State{}) {
		t.Fatalf("unknown session should start empty, got %+v", *st)
	}
}

func TestRedisStateStoreTTL(t *testing.T) {
	store, mr := testRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-ttl", NewState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(sessionKey("sess-ttl")); ttl != sessionTTL {
		t.Fatalf("ttl = %v, want %v", ttl, sessionTTL)
	}

	mr.FastForward(sessionTTL + 1)
	st, err := store.Load(ctx, "sess-ttl")
	if err != nil {
		t.Fatalf("load after expiry: %v", err)
	}
	if *st != (State{}) {
		t.Fatalf("expired session should come back empty, got %+v", *st)
	}
}

func TestRedisStateStoreDelete(t *testing.T) {
	store, mr := testRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-del", &State{Name: "Asha"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "sess-del"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists(sessionKey("sess-del")) {
		t.Fatal("key should be gone after delete")
	}
}

func TestMemoryStateStoreIsolation(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	st := &State{Name: "Asha"}
	if err := store.Save(ctx, "a", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	st.Name = "changed"
	loaded, err := store.Load(ctx, "a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "Asha" {
		t.Fatalf("store shares memory with callers: %+v", loaded)
	}

	other, _ := store.Load(ctx, "b")
	if *other != (State{}) {
		t.Fatalf("sessions leak into each other: %+v", other)
	}
}
