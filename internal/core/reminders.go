package core

import (
	"context"
	"time"
)

// AckOutcome reports the result of acknowledging one reminder.
type AckOutcome struct {
	ID  int64
	Err error
}

// OK reports whether the reminder was resolved.
func (o AckOutcome) OK() bool { return o.Err == nil }

// PendingReminders lists unresolved reminders, earliest target date first.
func (s *Service) PendingReminders(ctx context.Context) ([]Reminder, error) {
	var out []Reminder
	err := s.run(ctx, "list_reminders", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListUnresolvedReminders(ctx)
		return err
	})
	return out, err
}

// AcknowledgeReminders resolves each id with its own statement. A failure on
// one row does not undo or stop the others; every id gets an outcome in
// input order. Duplicate ids are acknowledged once.
func (s *Service) AcknowledgeReminders(ctx context.Context, ids []int64) []AckOutcome {
	seen := make(map[int64]struct{}, len(ids))
	outcomes := make([]AckOutcome, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		started := time.Now()
		err := s.run(ctx, "acknowledge_reminder", func(ctx context.Context) error {
			return s.store.ResolveReminder(ctx, id)
		})
		s.recordAudit(ctx, "acknowledge_reminder", id, err, time.Since(started))
		outcomes = append(outcomes, AckOutcome{ID: id, Err: err})
	}
	return outcomes
}

// PendingAlarms returns the subset of ids that are unresolved alarms.
func (s *Service) PendingAlarms(ctx context.Context, ids []int64) ([]Reminder, error) {
	var out []Reminder
	err := s.run(ctx, "list_alarms", func(ctx context.Context) error {
		var err error
		out, err = s.store.ListOpenAlarms(ctx, ids)
		return err
	})
	return out, err
}
