package core

import (
	"context"
	"fmt"

	"plantcare/pkg/domain"
)

// NewClimateAlarmRule returns the rule that raises an urgent reminder for
// readings outside the configured bounds.
func NewClimateAlarmRule(bounds ClimateBounds, clock Clock) domain.Rule {
	return climateAlarmRule{bounds: bounds, clock: clock}
}

type climateAlarmRule struct {
	bounds ClimateBounds
	clock  Clock
}

func (climateAlarmRule) Name() string { return "climate_alarm" }

func (r climateAlarmRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityReading || change.Action != domain.ActionCreate {
			continue
		}
		reading, ok := change.After.(domain.EnvironmentReading)
		if !ok {
			continue
		}
		plant, err := lookupPlant(view, reading.PlantID)
		if err != nil {
			return domain.Result{}, err
		}
		for _, msg := range r.alarms(plant.Nickname, reading) {
			id, open, err := findOpenReminder(view, plant.ID, msg, nil)
			if err != nil {
				return domain.Result{}, err
			}
			if open {
				res.Matched = append(res.Matched, id)
				continue
			}
			res.Reminders = append(res.Reminders, domain.Reminder{
				PlantID:    plant.ID,
				Message:    msg,
				TargetDate: domain.Day(reading.ValidFrom),
				CreatedAt:  r.clock.Now(),
			})
		}
	}
	return res, nil
}

func (r climateAlarmRule) alarms(nickname string, reading domain.EnvironmentReading) []string {
	var out []string
	b := r.bounds
	if reading.Temperature < b.TemperatureMin || reading.Temperature > b.TemperatureMax {
		out = append(out, fmt.Sprintf("%s: %s temperature %.1f°C outside %.1f–%.1f°C",
			domain.AlarmPrefix, nickname, reading.Temperature, b.TemperatureMin, b.TemperatureMax))
	}
	if reading.Humidity < b.HumidityMin || reading.Humidity > b.HumidityMax {
		out = append(out, fmt.Sprintf("%s: %s humidity %.1f%% outside %.1f–%.1f%%",
			domain.AlarmPrefix, nickname, reading.Humidity, b.HumidityMin, b.HumidityMax))
	}
	return out
}
