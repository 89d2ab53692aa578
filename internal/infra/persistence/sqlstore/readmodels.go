package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"plantcare/pkg/domain"
)

const (
	selectPlant    = `SELECT id, species_id, nickname, image_url FROM plants`
	selectReminder = `SELECT id, plant_id, message, target_date, resolved, created_at FROM reminders`
	selectEvent    = `SELECT id, plant_id, kind, note, occurred_at FROM events`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (domain.Plant, error) {
	var (
		p     domain.Plant
		image sql.NullString
	)
	if err := row.Scan(&p.ID, &p.SpeciesID, &p.Nickname, &image); err != nil {
		return domain.Plant{}, err
	}
	p.ImageURL = image.String
	return p, nil
}

func scanOptionalPlant(row rowScanner) (domain.Plant, bool, error) {
	p, err := scanPlant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Plant{}, false, nil
	}
	if err != nil {
		return domain.Plant{}, false, err
	}
	return p, true, nil
}

func scanOptionalSpecies(row rowScanner) (domain.Species, bool, error) {
	var sp domain.Species
	err := row.Scan(&sp.ID, &sp.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Species{}, false, nil
	}
	if err != nil {
		return domain.Species{}, false, err
	}
	return sp, true, nil
}

func scanReminder(row rowScanner) (domain.Reminder, error) {
	var r domain.Reminder
	if err := row.Scan(&r.ID, &r.PlantID, &r.Message, &r.TargetDate, &r.Resolved, &r.CreatedAt); err != nil {
		return domain.Reminder{}, err
	}
	r.TargetDate = domain.Day(r.TargetDate)
	return r, nil
}

func scanEvent(row rowScanner) (domain.CareEvent, error) {
	var (
		e    domain.CareEvent
		kind string
	)
	if err := row.Scan(&e.ID, &e.PlantID, &kind, &e.Note, &e.OccurredAt); err != nil {
		return domain.CareEvent{}, err
	}
	e.Kind = domain.EventKind(kind)
	return e, nil
}

// ListSpecies returns all species ordered by name.
func (s *Store) ListSpecies(ctx context.Context) ([]domain.Species, error) {
	var out []domain.Species
	err := s.queryRows(ctx, `SELECT id, name FROM species ORDER BY name ASC`, func(rows *sql.Rows) error {
		var sp domain.Species
		if err := rows.Scan(&sp.ID, &sp.Name); err != nil {
			return err
		}
		out = append(out, sp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	return out, nil
}

// EnsureSpecies inserts each named species unless it already exists.
func (s *Store) EnsureSpecies(ctx context.Context, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := s.Execute(ctx, `INSERT INTO species (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed species %q: %w", name, err)
		}
	}
	return nil
}

// ListPlants returns all plants ordered by nickname.
func (s *Store) ListPlants(ctx context.Context) ([]domain.Plant, error) {
	var out []domain.Plant
	err := s.queryRows(ctx, selectPlant+` ORDER BY nickname ASC, id ASC`, func(rows *sql.Rows) error {
		p, err := scanPlant(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	return out, nil
}

// GetPlant looks up one plant by id.
func (s *Store) GetPlant(ctx context.Context, id int64) (domain.Plant, bool, error) {
	var (
		p     domain.Plant
		found bool
	)
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		p, found, err = scanOptionalPlant(conn.QueryRowContext(ctx, s.rebind(selectPlant+` WHERE id = ?`), id))
		return err
	})
	if err != nil {
		return domain.Plant{}, false, fmt.Errorf("get plant %d: %w", id, err)
	}
	return p, found, nil
}

// GetSpecies looks up one species by id.
func (s *Store) GetSpecies(ctx context.Context, id int64) (domain.Species, bool, error) {
	var (
		sp    domain.Species
		found bool
	)
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		sp, found, err = scanOptionalSpecies(conn.QueryRowContext(ctx, s.rebind(`SELECT id, name FROM species WHERE id = ?`), id))
		return err
	})
	if err != nil {
		return domain.Species{}, false, fmt.Errorf("get species %d: %w", id, err)
	}
	return sp, found, nil
}

// ListEvents returns care events newest first. A zero plantID lists every plant.
func (s *Store) ListEvents(ctx context.Context, plantID int64) ([]domain.CareEvent, error) {
	query := selectEvent
	var args []any
	if plantID != 0 {
		query += ` WHERE plant_id = ?`
		args = append(args, plantID)
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	var out []domain.CareEvent
	err := s.queryRows(ctx, query, func(rows *sql.Rows) error {
		e, err := scanEvent(rows)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// ListUnresolvedReminders returns pending reminders, earliest target first.
func (s *Store) ListUnresolvedReminders(ctx context.Context) ([]domain.Reminder, error) {
	var out []domain.Reminder
	err := s.queryRows(ctx, selectReminder+` WHERE resolved = FALSE ORDER BY target_date ASC, id ASC`, func(rows *sql.Rows) error {
		r, err := scanReminder(rows)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return out, nil
}

// ListOpenAlarms returns the subset of ids that are still unresolved and carry
// an alarm prefix.
func (s *Store) ListOpenAlarms(ctx context.Context, ids []int64) ([]domain.Reminder, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(ids)+len(domain.AlarmPrefixes))
	for _, id := range ids {
		args = append(args, id)
	}
	likes := make([]string, 0, len(domain.AlarmPrefixes))
	for _, prefix := range domain.AlarmPrefixes {
		likes = append(likes, `UPPER(message) LIKE ?`)
		args = append(args, prefix+"%")
	}
	query := selectReminder + ` WHERE id IN (` + placeholders(len(ids)) + `) AND resolved = FALSE AND (` +
		strings.Join(likes, ` OR `) + `) ORDER BY id ASC`
	var out []domain.Reminder
	err := s.queryRows(ctx, query, func(rows *sql.Rows) error {
		r, err := scanReminder(rows)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	return out, nil
}

// ResolveReminder flips one pending reminder to resolved in its own
// transaction. Resolved rows are never touched again.
func (s *Store) ResolveReminder(ctx context.Context, id int64) error {
	n, err := s.execute(ctx, `UPDATE reminders SET resolved = TRUE WHERE id = ? AND resolved = FALSE`, id)
	if err != nil {
		return fmt.Errorf("resolve reminder %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("resolve reminder %d: %w", id, domain.ErrReminderNotPending)
	}
	return nil
}

// StatusOverview returns the status_overview view without its key column.
func (s *Store) StatusOverview(ctx context.Context) (domain.Table, error) {
	t, err := s.Query(ctx, `SELECT nickname, species, last_watered, last_event, temperature, humidity, open_reminders
FROM status_overview ORDER BY nickname ASC, plant_id ASC`)
	if err != nil {
		return domain.Table{}, fmt.Errorf("status overview: %w", err)
	}
	return t, nil
}

// CareStatistics returns per-plant event counts.
func (s *Store) CareStatistics(ctx context.Context) ([]domain.CareStatistic, error) {
	var out []domain.CareStatistic
	err := s.queryRows(ctx, `SELECT plant_id, nickname, total_events, waterings, fertilizings, repottings
FROM care_statistics ORDER BY nickname ASC, plant_id ASC`, func(rows *sql.Rows) error {
		var st domain.CareStatistic
		if err := rows.Scan(&st.PlantID, &st.Nickname, &st.TotalEvents, &st.Waterings, &st.Fertilizings, &st.Repottings); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("care statistics: %w", err)
	}
	return out, nil
}

// EnvironmentSeries returns every reading joined to its plant, oldest first.
func (s *Store) EnvironmentSeries(ctx context.Context) ([]domain.EnvironmentPoint, error) {
	var out []domain.EnvironmentPoint
	err := s.queryRows(ctx, `SELECT h.plant_id, p.nickname, h.temperature, h.humidity, h.valid_from
FROM environment_history h JOIN plants p ON p.id = h.plant_id
ORDER BY h.valid_from ASC, h.id ASC`, func(rows *sql.Rows) error {
		var pt domain.EnvironmentPoint
		if err := rows.Scan(&pt.PlantID, &pt.Nickname, &pt.Temperature, &pt.Humidity, &pt.At); err != nil {
			return err
		}
		out = append(out, pt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("environment series: %w", err)
	}
	return out, nil
}
