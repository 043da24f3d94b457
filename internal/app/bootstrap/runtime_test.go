package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/smiledental/reception-agent/internal/config"
	"github.com/smiledental/reception-agent/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: ""}
	if c := BuildRedisClient(context.Background(), cfg, logging.Default(), false); c != nil {
		t.Fatal("expected nil client when redis is not configured")
	}
	if c := BuildRedisClient(context.Background(), nil, logging.Default(), false); c != nil {
		t.Fatal("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	if client == nil {
		t.Fatal("expected a client for a reachable redis")
	}
	defer client.Close()

	// An unreachable address with verify=true degrades to nil.
	bad := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if c := BuildRedisClient(context.Background(), bad, logging.Default(), true); c != nil {
		t.Fatal("expected nil client when ping fails")
	}
}

func TestBuildStateStoreFallsBackToMemory(t *testing.T) {
	store := BuildStateStore(nil, logging.Default())
	if store == nil {
		t.Fatal("expected an in-memory store")
	}

	st, err := store.Load(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st == nil {
		t.Fatal("expected a fresh state")
	}
}

func TestBuildPostgresDisabled(t *testing.T) {
	db, err := BuildPostgres(context.Background(), &appconfig.Config{DatabaseURL: ""}, logging.Default())
	if err != nil || db != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", db, err)
	}
	if store := BuildTranscriptStore(nil); store != nil {
		t.Fatal("expected nil transcript store without a database")
	}
}
