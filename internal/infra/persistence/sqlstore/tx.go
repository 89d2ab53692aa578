package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"plantcare/pkg/domain"
)

// transaction adapts a *sql.Tx to domain.Transaction. Reads issued by rules go
// through the same tx so they observe rows written earlier in the scope.
type transaction struct {
	ctx     context.Context
	store   *Store
	tx      *sql.Tx
	changes []domain.Change
}

var _ domain.Transaction = (*transaction)(nil)

// RunInTransaction executes fn within one database transaction, evaluates the
// rules engine over the recorded changes, persists the derived reminders, and
// commits. Any failure rolls back every write in the scope.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	var result domain.Result
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		sqlTx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		t := &transaction{ctx: ctx, store: s, tx: sqlTx}
		if err := fn(t); err != nil {
			_ = sqlTx.Rollback()
			return err
		}
		res, err := s.engine.Evaluate(ctx, t, t.changes)
		if err != nil {
			_ = sqlTx.Rollback()
			return fmt.Errorf("evaluate rules: %w", err)
		}
		for i, reminder := range res.Reminders {
			saved, err := t.insertReminder(reminder)
			if err != nil {
				_ = sqlTx.Rollback()
				return err
			}
			res.Reminders[i] = saved
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		result = res
		return nil
	})
	return result, err
}

func (t *transaction) record(entity domain.EntityType, after any) {
	t.changes = append(t.changes, domain.Change{Entity: entity, Action: domain.ActionCreate, After: after})
}

func (t *transaction) insertReturningID(query string, args ...any) (int64, error) {
	var id int64
	if err := t.tx.QueryRowContext(t.ctx, t.store.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *transaction) InsertPlant(p domain.Plant) (domain.Plant, error) {
	p.Nickname = strings.TrimSpace(p.Nickname)
	image := sql.NullString{String: strings.TrimSpace(p.ImageURL), Valid: strings.TrimSpace(p.ImageURL) != ""}
	id, err := t.insertReturningID(`INSERT INTO plants (species_id, nickname, image_url) VALUES (?, ?, ?)`,
		p.SpeciesID, p.Nickname, image)
	if err != nil {
		return domain.Plant{}, fmt.Errorf("insert plant: %w", err)
	}
	p.ID = id
	p.ImageURL = image.String
	t.record(domain.EntityPlant, p)
	return p, nil
}

func (t *transaction) InsertCareEvent(e domain.CareEvent) (domain.CareEvent, error) {
	if _, err := domain.ParseEventKind(string(e.Kind)); err != nil {
		return domain.CareEvent{}, err
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()
	id, err := t.insertReturningID(`INSERT INTO events (plant_id, kind, note, occurred_at) VALUES (?, ?, ?, ?)`,
		e.PlantID, string(e.Kind), e.Note, e.OccurredAt)
	if err != nil {
		return domain.CareEvent{}, fmt.Errorf("insert care event: %w", err)
	}
	e.ID = id
	t.record(domain.EntityEvent, e)
	return e, nil
}

func (t *transaction) InsertReading(r domain.EnvironmentReading) (domain.EnvironmentReading, error) {
	if r.ValidFrom.IsZero() {
		r.ValidFrom = time.Now()
	}
	r.ValidFrom = r.ValidFrom.UTC()
	var validTo any
	if r.ValidTo != nil {
		to := r.ValidTo.UTC()
		r.ValidTo = &to
		validTo = to
	}
	id, err := t.insertReturningID(`INSERT INTO environment_history (plant_id, temperature, humidity, valid_from, valid_to) VALUES (?, ?, ?, ?, ?)`,
		r.PlantID, r.Temperature, r.Humidity, r.ValidFrom, validTo)
	if err != nil {
		return domain.EnvironmentReading{}, fmt.Errorf("insert environment reading: %w", err)
	}
	r.ID = id
	t.record(domain.EntityReading, r)
	return r, nil
}

func (t *transaction) insertReminder(r domain.Reminder) (domain.Reminder, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.TargetDate = domain.Day(r.TargetDate)
	r.Resolved = false
	id, err := t.insertReturningID(`INSERT INTO reminders (plant_id, message, target_date, resolved, created_at) VALUES (?, ?, ?, FALSE, ?)`,
		r.PlantID, r.Message, r.TargetDate, r.CreatedAt)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	r.ID = id
	return r, nil
}

func (t *transaction) FindPlant(id int64) (domain.Plant, bool, error) {
	row := t.tx.QueryRowContext(t.ctx, t.store.rebind(selectPlant+` WHERE id = ?`), id)
	return scanOptionalPlant(row)
}

func (t *transaction) FindSpecies(id int64) (domain.Species, bool, error) {
	row := t.tx.QueryRowContext(t.ctx, t.store.rebind(`SELECT id, name FROM species WHERE id = ?`), id)
	return scanOptionalSpecies(row)
}

func (t *transaction) ListOpenReminders(plantID int64) ([]domain.Reminder, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.store.rebind(selectReminder+` WHERE plant_id = ? AND resolved = FALSE ORDER BY target_date ASC, id ASC`), plantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
