package domain

import "context"

// Transaction exposes the writes a persistence implementation must support
// within an atomic scope. Every insert is recorded as a Change for the rules
// engine, which runs before commit.
type Transaction interface {
	RuleView
	InsertPlant(Plant) (Plant, error)
	InsertCareEvent(CareEvent) (CareEvent, error)
	InsertReading(EnvironmentReading) (EnvironmentReading, error)
}

// Gateway is the statement-level contract: one statement per call on a
// dedicated connection that is released on every exit path.
type Gateway interface {
	Query(ctx context.Context, query string, args ...any) (Table, error)
	Execute(ctx context.Context, query string, args ...any) error
}

// PersistentStore is the abstraction over durable backends used by higher
// layers: the statement gateway, typed read models, and transactional writes.
type PersistentStore interface {
	Gateway
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)

	ListSpecies(ctx context.Context) ([]Species, error)
	EnsureSpecies(ctx context.Context, names []string) error
	ListPlants(ctx context.Context) ([]Plant, error)
	GetPlant(ctx context.Context, id int64) (Plant, bool, error)
	GetSpecies(ctx context.Context, id int64) (Species, bool, error)
	ListEvents(ctx context.Context, plantID int64) ([]CareEvent, error)
	ListUnresolvedReminders(ctx context.Context) ([]Reminder, error)
	ListOpenAlarms(ctx context.Context, ids []int64) ([]Reminder, error)
	ResolveReminder(ctx context.Context, id int64) error
	StatusOverview(ctx context.Context) (Table, error)
	CareStatistics(ctx context.Context) ([]CareStatistic, error)
	EnvironmentSeries(ctx context.Context) ([]EnvironmentPoint, error)
	Close() error
}
