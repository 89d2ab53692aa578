package core

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"plantcare/internal/infra/persistence/sqlite"
)

var fixedNow = time.Date(2026, 4, 2, 15, 4, 5, 0, time.UTC)

// newTestService opens a fresh sqlite-backed service with the default rules
// and seeded species. The clock is frozen at fixedNow.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	settings := DefaultCareSettings()
	clock := ClockFunc(func() time.Time { return fixedNow })
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "plantcare.db"), NewDefaultRulesEngine(settings, clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	all := append([]Option{WithCareSettings(settings), WithClock(clock)}, opts...)
	svc := NewService(store, all...)
	if err := svc.SeedSpecies(context.Background()); err != nil {
		t.Fatalf("seed species: %v", err)
	}
	return svc
}

func speciesByName(t *testing.T, svc *Service, name string) Species {
	t.Helper()
	list, err := svc.ListSpecies(context.Background())
	if err != nil {
		t.Fatalf("list species: %v", err)
	}
	for _, sp := range list {
		if sp.Name == name {
			return sp
		}
	}
	t.Fatalf("species %q missing", name)
	return Species{}
}

func mustPlant(t *testing.T, svc *Service, species, nickname string) Plant {
	t.Helper()
	plant, _, err := svc.RegisterPlant(context.Background(), PlantInput{SpeciesID: speciesByName(t, svc, species).ID, Nickname: nickname})
	if err != nil {
		t.Fatalf("register plant: %v", err)
	}
	return plant
}

type logRecord struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	records []logRecord
}

func (c *captureLogger) add(level, msg string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, logRecord{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.add("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.add("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.add("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.add("error", msg, args) }

func (c *captureLogger) has(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.level == level && r.msg == msg {
			return true
		}
	}
	return false
}
