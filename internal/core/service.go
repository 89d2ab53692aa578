package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logging surface used by the service. Implementations
// accept alternating key/value pairs after the message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

// AuditStatus is the outcome recorded for a write.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one write performed through the service.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  int64
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives an entry for every write operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// auditTargets maps write operations to the entity and action they touch.
var auditTargets = map[string]struct {
	entity EntityType
	action Action
}{
	"register_plant":       {EntityPlant, ActionCreate},
	"log_care_event":       {EntityEvent, ActionCreate},
	"record_measurement":   {EntityReading, ActionCreate},
	"acknowledge_reminder": {EntityReminder, ActionResolve},
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit sink for writes.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithCareSettings supplies the species and climate configuration.
func WithCareSettings(settings CareSettings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// Service exposes the plant-care operations on top of a persistent store.
type Service struct {
	store    PersistentStore
	settings CareSettings
	logger   Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		settings: DefaultCareSettings(),
		logger:   noopLogger{},
		clock:    ClockFunc(time.Now),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		audit:    noopAudit{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Settings returns the active care settings.
func (s *Service) Settings() CareSettings { return s.settings }

// Now reports the service clock.
func (s *Service) Now() time.Time { return s.clock.Now() }

// run wraps an operation with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	elapsed := time.Since(started)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err, "duration", elapsed)
	} else {
		s.logger.Debug("operation completed", "operation", op, "duration", elapsed)
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, op string, id int64, err error, duration time.Duration) {
	target, ok := auditTargets[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    target.entity,
		Action:    target.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// SeedSpecies inserts every configured species that is not stored yet.
func (s *Service) SeedSpecies(ctx context.Context) error {
	return s.run(ctx, "seed_species", func(ctx context.Context) error {
		return s.store.EnsureSpecies(ctx, s.settings.SpeciesNames())
	})
}

// PlantInput carries the fields submitted through the plant form.
type PlantInput struct {
	SpeciesID int64
	Nickname  string
	ImageURL  string
}

// RegisterPlant persists a new plant after resolving its species.
func (s *Service) RegisterPlant(ctx context.Context, in PlantInput) (Plant, Result, error) {
	var (
		created Plant
		res     Result
	)
	started := time.Now()
	err := s.run(ctx, "register_plant", func(ctx context.Context) error {
		if _, found, err := s.store.GetSpecies(ctx, in.SpeciesID); err != nil {
			return err
		} else if !found {
			return ErrNotFound{Entity: EntitySpecies, ID: in.SpeciesID}
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.InsertPlant(Plant{SpeciesID: in.SpeciesID, Nickname: in.Nickname, ImageURL: in.ImageURL})
			return err
		})
		return err
	})
	s.recordAudit(ctx, "register_plant", created.ID, err, time.Since(started))
	return created, res, err
}

// LogCareEvent records a care action for a plant. The rules engine derives the
// follow-up reminder in the same transaction.
func (s *Service) LogCareEvent(ctx context.Context, plantID int64, kind EventKind, note string) (CareEvent, Result, error) {
	var (
		created CareEvent
		res     Result
	)
	started := time.Now()
	err := s.run(ctx, "log_care_event", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, found, err := tx.FindPlant(plantID); err != nil {
				return err
			} else if !found {
				return ErrNotFound{Entity: EntityPlant, ID: plantID}
			}
			var err error
			created, err = tx.InsertCareEvent(CareEvent{
				PlantID:    plantID,
				Kind:       kind,
				Note:       strings.TrimSpace(note),
				OccurredAt: s.clock.Now(),
			})
			return err
		})
		return err
	})
	s.recordAudit(ctx, "log_care_event", created.ID, err, time.Since(started))
	return created, res, err
}

// Measurement is the outcome of recording a reading: the stored row and the
// pending alarms it raised or matched.
type Measurement struct {
	Reading EnvironmentReading
	Result  Result
	Alarms  []Reminder
}

// RecordMeasurement stores an open-ended environment reading starting now and
// returns the alarms derived from it.
func (s *Service) RecordMeasurement(ctx context.Context, plantID int64, temperature, humidity float64) (Measurement, error) {
	var out Measurement
	started := time.Now()
	err := s.run(ctx, "record_measurement", func(ctx context.Context) error {
		var err error
		out.Result, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			out.Reading, err = tx.InsertReading(EnvironmentReading{
				PlantID:     plantID,
				Temperature: temperature,
				Humidity:    humidity,
				ValidFrom:   s.clock.Now(),
			})
			return err
		})
		if err != nil {
			return err
		}
		ids := append(out.Result.ReminderIDs(), out.Result.Matched...)
		out.Alarms, err = s.store.ListOpenAlarms(ctx, ids)
		return err
	})
	s.recordAudit(ctx, "record_measurement", out.Reading.ID, err, time.Since(started))
	if len(out.Alarms) > 0 {
		s.logger.Warn("climate alarm raised", "plant_id", plantID, "alarms", len(out.Alarms))
	}
	return out, err
}

// ListSpecies returns all species by name.
func (s *Service) ListSpecies(ctx context.Context) ([]Species, error) {
	var out []Species
	err := s.run(ctx, "list_species", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListSpecies(ctx)
		return err
	})
	return out, err
}

// ListPlants returns all plants by nickname.
func (s *Service) ListPlants(ctx context.Context) ([]Plant, error) {
	var out []Plant
	err := s.run(ctx, "list_plants", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListPlants(ctx)
		return err
	})
	return out, err
}

// PlantWithSpecies resolves a plant and its species, returning ErrNotFound
// when either is missing.
func (s *Service) PlantWithSpecies(ctx context.Context, plantID int64) (Plant, Species, error) {
	var (
		plant   Plant
		species Species
	)
	err := s.run(ctx, "get_plant", func(ctx context.Context) error {
		p, found, err := s.store.GetPlant(ctx, plantID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound{Entity: EntityPlant, ID: plantID}
		}
		sp, found, err := s.store.GetSpecies(ctx, p.SpeciesID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound{Entity: EntitySpecies, ID: p.SpeciesID}
		}
		plant, species = p, sp
		return nil
	})
	return plant, species, err
}

// RecentEvents returns the latest care events across all plants, newest first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]CareEvent, error) {
	var out []CareEvent
	err := s.run(ctx, "list_events", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListEvents(ctx, 0)
		return err
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// StatusOverview returns the per-plant status table.
func (s *Service) StatusOverview(ctx context.Context) (Table, error) {
	var out Table
	err := s.run(ctx, "status_overview", func(ctx context.Context) error {
		var err error
		out, err = s.store.StatusOverview(ctx)
		return err
	})
	return out, err
}

// CareStatistics returns per-plant event counts.
func (s *Service) CareStatistics(ctx context.Context) ([]CareStatistic, error) {
	var out []CareStatistic
	err := s.run(ctx, "care_statistics", func(ctx context.Context) error {
		var err error
		out, err = s.store.CareStatistics(ctx)
		return err
	})
	return out, err
}

// EnvironmentSeries returns every reading joined to its plant, oldest first.
func (s *Service) EnvironmentSeries(ctx context.Context) ([]EnvironmentPoint, error) {
	var out []EnvironmentPoint
	err := s.run(ctx, "environment_series", func(ctx context.Context) error {
		var err error
		out, err = s.store.EnvironmentSeries(ctx)
		return err
	})
	return out, err
}

// Ping checks store connectivity with a trivial statement.
func (s *Service) Ping(ctx context.Context) error {
	return s.run(ctx, "ping", func(ctx context.Context) error {
		if _, err := s.store.Query(ctx, "SELECT 1"); err != nil {
			return fmt.Errorf("ping store: %w", err)
		}
		return nil
	})
}
