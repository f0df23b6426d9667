//go:build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pmilosev/idemgate/internal/database"
	"github.com/pmilosev/idemgate/internal/idempotency"
	"github.com/pmilosev/idemgate/internal/idempotency/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	projectRoot := findProjectRoot(t)
	migrationsPath := filepath.Join(projectRoot, "migrations")

	if err := database.RunMigrations(connStr, migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func testEntry(key, body string) idempotency.Entry {
	return idempotency.Entry{
		Key: key,
		Envelope: idempotency.Envelope{
			StatusCode: 201,
			Body:       []byte(body),
			CapturedAt: time.Now().UTC().Truncate(time.Microsecond),
		},
		Fingerprint: "fp-" + key,
	}
}

func TestStorePutAndGet(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	key := "test-idempotency-key-1"
	entry := testEntry(key, `{"order_id": "test-order-1"}`)

	if err := store.Put(ctx, key, entry, time.Hour); err != nil {
		t.Fatalf("failed to put idempotency entry: %v", err)
	}

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("failed to get idempotency entry: %v", err)
	}

	if retrieved == nil {
		t.Fatal("expected entry, got nil")
	}

	if retrieved.Envelope.StatusCode != entry.Envelope.StatusCode {
		t.Errorf("expected status code %d, got %d", entry.Envelope.StatusCode, retrieved.Envelope.StatusCode)
	}

	if string(retrieved.Envelope.Body) != string(entry.Envelope.Body) {
		t.Errorf("expected body %s, got %s", entry.Envelope.Body, retrieved.Envelope.Body)
	}

	if retrieved.Fingerprint != entry.Fingerprint {
		t.Errorf("expected fingerprint %s, got %s", entry.Fingerprint, retrieved.Fingerprint)
	}

	if retrieved.Envelope.FromCache {
		t.Error("stored entry must not carry the replay marker")
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	retrieved, err := store.Get(ctx, "nonexistent-key")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if retrieved != nil {
		t.Errorf("expected nil entry, got %v", retrieved)
	}
}

func TestStorePut_FirstWriteWins(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	key := "test-idempotency-key-conflict"
	first := testEntry(key, `{"order_id": "order-1"}`)
	second := testEntry(key, `{"order_id": "order-2"}`)

	if err := store.Put(ctx, key, first, time.Hour); err != nil {
		t.Fatalf("failed to put first entry: %v", err)
	}

	if err := store.Put(ctx, key, second, time.Hour); err != nil {
		t.Fatalf("failed to put second entry: %v", err)
	}

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}

	if string(retrieved.Envelope.Body) != string(first.Envelope.Body) {
		t.Errorf("expected first entry to be preserved, got body %s", retrieved.Envelope.Body)
	}
}

func TestStorePut_ReplacesExpiredRow(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	key := "test-idempotency-key-expired-row"
	if err := store.Put(ctx, key, testEntry(key, `{"order_id": "stale"}`), time.Second); err != nil {
		t.Fatalf("failed to put first entry: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	// The expired row still occupies the key until the janitor sweeps; a new
	// write must take it over rather than silently losing the fresh entry.
	fresh := testEntry(key, `{"order_id": "fresh"}`)
	if err := store.Put(ctx, key, fresh, time.Hour); err != nil {
		t.Fatalf("failed to put over expired row: %v", err)
	}

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("failed to get entry: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected the fresh entry to be live, got a miss")
	}
	if string(retrieved.Envelope.Body) != string(fresh.Envelope.Body) {
		t.Errorf("expected fresh entry body %s, got %s", fresh.Envelope.Body, retrieved.Envelope.Body)
	}
}

func TestStoreGet_ExpiredEntryIsAMiss(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	key := "test-idempotency-key-ttl"
	if err := store.Put(ctx, key, testEntry(key, `{}`), time.Second); err != nil {
		t.Fatalf("failed to put entry: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	retrieved, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if retrieved != nil {
		t.Error("expected expired entry to be treated as a miss")
	}
}

func TestStoreRemoveAndDeleteExpired(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	if err := store.Put(ctx, "keep", testEntry("keep", `{}`), time.Hour); err != nil {
		t.Fatalf("failed to put entry: %v", err)
	}
	if err := store.Put(ctx, "short", testEntry("short", `{}`), time.Second); err != nil {
		t.Fatalf("failed to put entry: %v", err)
	}

	if err := store.Remove(ctx, "keep"); err != nil {
		t.Fatalf("failed to remove entry: %v", err)
	}
	if entry, err := store.Get(ctx, "keep"); err != nil || entry != nil {
		t.Errorf("expected removed entry to be gone, got entry=%v err=%v", entry, err)
	}

	time.Sleep(1100 * time.Millisecond)

	reclaimed, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("failed to delete expired entries: %v", err)
	}
	if reclaimed != 1 {
		t.Errorf("expected 1 reclaimed row, got %d", reclaimed)
	}
}
