package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenPersistentStoreSQLiteFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("PLANTCARE_STORAGE_DRIVER", "")
	t.Setenv("PLANTCARE_SQLITE_PATH", path)
	t.Setenv("PLANTCARE_DB_MAX_CONNS", "2")

	store, err := OpenPersistentStore(context.Background(), NewDefaultRulesEngine(DefaultCareSettings(), nil))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.EnsureSpecies(context.Background(), []string{"Fern"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err := store.ListSpecies(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected species %v %v", list, err)
	}
}

func TestOpenPersistentStoreRejectsBadConfig(t *testing.T) {
	t.Setenv("PLANTCARE_STORAGE_DRIVER", "mongo")
	t.Setenv("PLANTCARE_DB_MAX_CONNS", "")
	if _, err := OpenPersistentStore(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	t.Setenv("PLANTCARE_STORAGE_DRIVER", "sqlite")
	t.Setenv("PLANTCARE_DB_MAX_CONNS", "zero")
	if _, err := OpenPersistentStore(context.Background(), nil); err == nil {
		t.Fatalf("expected invalid max conns error")
	}
}
