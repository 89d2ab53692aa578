package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ErrReminderNotPending is returned when acknowledging a reminder that is
// missing or already resolved.
var ErrReminderNotPending = errors.New("reminder is not pending")
