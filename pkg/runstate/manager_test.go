package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips the test if none is
// running. tests/integration covers the same paths with testcontainers.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, Config{})
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.config != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", manager.config)
	}
	if manager.ReportKey() != "parldok:run:last" {
		t.Errorf("ReportKey() = %q", manager.ReportKey())
	}
	if manager.LockKey() != "parldok:run:lock" {
		t.Errorf("LockKey() = %q", manager.LockKey())
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, DefaultConfig())
}

func TestManager_SaveAndLoadReport(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultConfig())
	ctx := context.Background()

	report := map[string]any{"run_id": "abc", "records": 45}
	if err := manager.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	raw, err := manager.LastReport(ctx)
	if err != nil {
		t.Fatalf("LastReport failed: %v", err)
	}

	var got struct {
		RunID   string `json:"run_id"`
		Records int    `json:"records"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("stored report is not JSON: %v", err)
	}
	if got.RunID != "abc" || got.Records != 45 {
		t.Errorf("LastReport() = %s", raw)
	}

	ttl := client.TTL(ctx, manager.ReportKey()).Val()
	if ttl <= 0 || ttl > 7*24*time.Hour {
		t.Errorf("report TTL = %v, want (0, 7d]", ttl)
	}
}

func TestManager_LastReport_Missing(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultConfig())

	_, err := manager.LastReport(context.Background())
	if !errors.Is(err, ErrNoReport) {
		t.Errorf("Expected ErrNoReport, got %v", err)
	}
}

func TestManager_LastReport_Invalid(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultConfig())
	ctx := context.Background()

	client.Set(ctx, manager.ReportKey(), "{not json", time.Minute)

	_, err := manager.LastReport(ctx)
	if !errors.Is(err, ErrInvalidReport) {
		t.Errorf("Expected ErrInvalidReport, got %v", err)
	}
}

func TestManager_SaveReport_Nil(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultConfig())

	if err := manager.SaveReport(context.Background(), nil); err == nil {
		t.Error("SaveReport with nil report should return error")
	}
}

func TestManager_Lock(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, DefaultConfig())
	ctx := context.Background()

	lock, err := manager.AcquireLock(ctx)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	if _, err := manager.AcquireLock(ctx); !errors.Is(err, ErrLocked) {
		t.Errorf("second AcquireLock = %v, want ErrLocked", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	again, err := manager.AcquireLock(ctx)
	if err != nil {
		t.Fatalf("AcquireLock after Release failed: %v", err)
	}
	defer again.Release(ctx)
}

func TestManager_Lock_ReleaseDoesNotStealForeignLock(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, Config{LockTTL: time.Minute})
	ctx := context.Background()

	lock, err := manager.AcquireLock(ctx)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	// Simulate expiry followed by another run taking the lock.
	client.Set(ctx, manager.LockKey(), "someone-else", time.Minute)

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := client.Get(ctx, manager.LockKey()).Val(); got != "someone-else" {
		t.Errorf("foreign lock value = %q, want it untouched", got)
	}
}

func TestLock_ReleaseNil(t *testing.T) {
	var lock *Lock
	if err := lock.Release(context.Background()); err != nil {
		t.Errorf("Release on nil lock = %v", err)
	}
}
