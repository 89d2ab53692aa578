package core

import (
	"time"

	"plantcare/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in care policy set.
func NewDefaultRulesEngine(settings CareSettings, clock Clock) *RulesEngine {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	engine := domain.NewRulesEngine()
	engine.Register(NewCareScheduleRule(settings, clock))
	engine.Register(NewClimateAlarmRule(settings.Climate, clock))
	return engine
}

// findOpenReminder returns the id of an unresolved reminder for the plant with
// msg, optionally restricted to the same target day.
func findOpenReminder(view domain.RuleView, plantID int64, msg string, target *time.Time) (int64, bool, error) {
	open, err := view.ListOpenReminders(plantID)
	if err != nil {
		return 0, false, err
	}
	for _, r := range open {
		if r.Message != msg {
			continue
		}
		if target == nil || domain.Day(r.TargetDate).Equal(domain.Day(*target)) {
			return r.ID, true, nil
		}
	}
	return 0, false, nil
}

// lookupPlant resolves a plant inside the transaction or reports ErrNotFound.
func lookupPlant(view domain.RuleView, id int64) (domain.Plant, error) {
	plant, ok, err := view.FindPlant(id)
	if err != nil {
		return domain.Plant{}, err
	}
	if !ok {
		return domain.Plant{}, ErrNotFound{Entity: EntityPlant, ID: id}
	}
	return plant, nil
}
