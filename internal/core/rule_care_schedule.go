package core

import (
	"context"
	"fmt"

	"plantcare/pkg/domain"
)

// NewCareScheduleRule returns the rule that schedules the next care action
// whenever a care event is logged.
func NewCareScheduleRule(settings CareSettings, clock Clock) domain.Rule {
	return careScheduleRule{settings: settings, clock: clock}
}

type careScheduleRule struct {
	settings CareSettings
	clock    Clock
}

func (careScheduleRule) Name() string { return "care_schedule" }

func (r careScheduleRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityEvent || change.Action != domain.ActionCreate {
			continue
		}
		event, ok := change.After.(domain.CareEvent)
		if !ok {
			continue
		}
		plant, err := lookupPlant(view, event.PlantID)
		if err != nil {
			return domain.Result{}, err
		}
		species, found, err := view.FindSpecies(plant.SpeciesID)
		if err != nil {
			return domain.Result{}, err
		}
		if !found {
			return domain.Result{}, ErrNotFound{Entity: EntitySpecies, ID: plant.SpeciesID}
		}
		days := r.settings.IntervalDays(species.Name, event.Kind)
		target := domain.Day(event.OccurredAt).AddDate(0, 0, days)
		msg := careMessage(event.Kind, plant.Nickname)
		_, dup, err := findOpenReminder(view, plant.ID, msg, &target)
		if err != nil {
			return domain.Result{}, err
		}
		if dup {
			continue
		}
		res.Reminders = append(res.Reminders, domain.Reminder{
			PlantID:    plant.ID,
			Message:    msg,
			TargetDate: target,
			CreatedAt:  r.clock.Now(),
		})
	}
	return res, nil
}

func careMessage(kind domain.EventKind, nickname string) string {
	switch kind {
	case domain.EventWatering:
		return fmt.Sprintf("Water %s again", nickname)
	case domain.EventFertilizing:
		return fmt.Sprintf("Fertilize %s", nickname)
	case domain.EventRepotting:
		return fmt.Sprintf("Repot %s", nickname)
	}
	return fmt.Sprintf("Check %s", nickname)
}
