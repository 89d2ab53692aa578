package core

import "plantcare/pkg/domain"

type (
	EntityType         = domain.EntityType
	EventKind          = domain.EventKind
	Species            = domain.Species
	Plant              = domain.Plant
	CareEvent          = domain.CareEvent
	EnvironmentReading = domain.EnvironmentReading
	Reminder           = domain.Reminder
	CareStatistic      = domain.CareStatistic
	EnvironmentPoint   = domain.EnvironmentPoint
	Table              = domain.Table
	Change             = domain.Change
	Action             = domain.Action
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	PersistentStore    = domain.PersistentStore
	ErrNotFound        = domain.ErrNotFound
)

const (
	EntitySpecies  = domain.EntitySpecies
	EntityPlant    = domain.EntityPlant
	EntityEvent    = domain.EntityEvent
	EntityReading  = domain.EntityReading
	EntityReminder = domain.EntityReminder
)

const (
	EventWatering    = domain.EventWatering
	EventFertilizing = domain.EventFertilizing
	EventRepotting   = domain.EventRepotting
)

const (
	ActionCreate  = domain.ActionCreate
	ActionResolve = domain.ActionResolve
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
