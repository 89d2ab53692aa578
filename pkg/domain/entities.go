// Package domain defines the plant-care entities, value types, and rule
// evaluation primitives used by plantcare.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and error reporting.
const (
	EntitySpecies  EntityType = "species"
	EntityPlant    EntityType = "plant"
	EntityEvent    EntityType = "care_event"
	EntityReading  EntityType = "environment_reading"
	EntityReminder EntityType = "reminder"
)

// EventKind enumerates the care actions a user can log against a plant.
type EventKind string

// Canonical care event kinds. Stored verbatim in events.kind.
const (
	EventWatering    EventKind = "watering"
	EventFertilizing EventKind = "fertilizing"
	EventRepotting   EventKind = "repotting"
)

// EventKinds lists the fixed enumeration in display order.
var EventKinds = []EventKind{EventWatering, EventFertilizing, EventRepotting}

// ParseEventKind resolves a submitted value into one of the fixed kinds.
func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range EventKinds {
		if k == kind {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", raw)
}

// Label returns the human readable form used in selectors.
func (k EventKind) Label() string {
	switch k {
	case EventWatering:
		return "Watering"
	case EventFertilizing:
		return "Fertilizing"
	case EventRepotting:
		return "Repotting"
	default:
		return string(k)
	}
}

// AlarmPrefixes mark reminder messages that denote an urgent alarm. HITNO is
// kept so rows written by the earlier trigger-based schema still classify.
var AlarmPrefixes = []string{"URGENT", "HITNO"}

// AlarmPrefix is the prefix used for alarms created by this application.
const AlarmPrefix = "URGENT"

// Species is immutable reference data seeded out of band.
type Species struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Plant is a registered plant referenced by events, readings and reminders.
type Plant struct {
	ID        int64  `json:"id"`
	SpeciesID int64  `json:"species_id"`
	Nickname  string `json:"nickname"`
	ImageURL  string `json:"image_url,omitempty"`
}

// CareEvent records a single care action. Immutable once created.
type CareEvent struct {
	ID         int64     `json:"id"`
	PlantID    int64     `json:"plant_id"`
	Kind       EventKind `json:"kind"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EnvironmentReading is a temperature/humidity measurement valid from
// ValidFrom until ValidTo; a nil ValidTo means the interval is open-ended.
type EnvironmentReading struct {
	ID          int64      `json:"id"`
	PlantID     int64      `json:"plant_id"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
}

// Open reports whether the validity interval has no upper bound.
func (r EnvironmentReading) Open() bool { return r.ValidTo == nil }

// Reminder is a task derived by the rules engine. Resolved only ever moves
// from false to true, through explicit acknowledgment.
type Reminder struct {
	ID         int64     `json:"id"`
	PlantID    int64     `json:"plant_id"`
	Message    string    `json:"message"`
	TargetDate time.Time `json:"target_date"`
	Resolved   bool      `json:"resolved"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsAlarm reports whether the reminder message carries an urgency prefix.
func (r Reminder) IsAlarm() bool {
	return IsAlarmMessage(r.Message)
}

// IsAlarmMessage reports whether msg starts with one of AlarmPrefixes.
func IsAlarmMessage(msg string) bool {
	upper := strings.ToUpper(strings.TrimSpace(msg))
	for _, p := range AlarmPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// CareStatistic is one row of the care_statistics view.
type CareStatistic struct {
	PlantID      int64  `json:"plant_id"`
	Nickname     string `json:"nickname"`
	TotalEvents  int64  `json:"total_events"`
	Waterings    int64  `json:"waterings"`
	Fertilizings int64  `json:"fertilizings"`
	Repottings   int64  `json:"repottings"`
}

// EnvironmentPoint is a reading joined to its plant nickname for charting.
type EnvironmentPoint struct {
	PlantID     int64     `json:"plant_id"`
	Nickname    string    `json:"nickname"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	At          time.Time `json:"at"`
}

// Table is an untyped query result, used for projections whose columns are
// rendered as-is (status overview, alarm tables).
type Table struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the table holds no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Change describes an entity written inside a transaction, handed to rules.
type Change struct {
	Entity EntityType
	Action Action
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions. The application only ever creates and resolves rows.
const (
	ActionCreate  Action = "create"
	ActionResolve Action = "resolve"
)

// Result aggregates the reminders derived by the rules engine. Matched holds
// the ids of open reminders a rule found instead of raising a duplicate.
type Result struct {
	Reminders []Reminder
	Matched   []int64
}

// Merge appends reminders and matched ids from another result.
func (r *Result) Merge(other Result) {
	r.Reminders = append(r.Reminders, other.Reminders...)
	r.Matched = append(r.Matched, other.Matched...)
}

// ReminderIDs returns the ids of persisted reminders in the result.
func (r Result) ReminderIDs() []int64 {
	ids := make([]int64, 0, len(r.Reminders))
	for _, rem := range r.Reminders {
		if rem.ID != 0 {
			ids = append(ids, rem.ID)
		}
	}
	return ids
}

// Day truncates t to midnight UTC, the granularity of reminder target dates.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
