package core

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"plantcare/internal/infra/persistence/postgres"
	"plantcare/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

const defaultMaxConns = 1

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	PLANTCARE_STORAGE_DRIVER: sqlite|postgres (default sqlite)
//	PLANTCARE_SQLITE_PATH: path to sqlite file (default ./plantcare.db)
//	PLANTCARE_POSTGRES_DSN: postgres DSN when driver=postgres
//	PLANTCARE_DB_MAX_CONNS: connection pool cap (default 1)
func OpenPersistentStore(ctx context.Context, engine *RulesEngine) (PersistentStore, error) {
	maxConns, err := maxConnsFromEnv()
	if err != nil {
		return nil, err
	}
	driver := os.Getenv("PLANTCARE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, os.Getenv("PLANTCARE_SQLITE_PATH"), engine)
		if err != nil {
			return nil, err
		}
		store.DB().SetMaxOpenConns(maxConns)
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, os.Getenv("PLANTCARE_POSTGRES_DSN"), engine)
		if err != nil {
			return nil, err
		}
		store.DB().SetMaxOpenConns(maxConns)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

func maxConnsFromEnv() (int, error) {
	raw := os.Getenv("PLANTCARE_DB_MAX_CONNS")
	if raw == "" {
		return defaultMaxConns, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid PLANTCARE_DB_MAX_CONNS %q", raw)
	}
	return n, nil
}
