package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CareIntervals holds the number of days between care actions.
type CareIntervals struct {
	WateringDays    int `yaml:"watering_days,omitempty"`
	FertilizingDays int `yaml:"fertilizing_days,omitempty"`
	RepottingDays   int `yaml:"repotting_days,omitempty"`
}

// Days returns the interval for the event kind, or zero when unknown.
func (c CareIntervals) Days(kind EventKind) int {
	switch kind {
	case EventWatering:
		return c.WateringDays
	case EventFertilizing:
		return c.FertilizingDays
	case EventRepotting:
		return c.RepottingDays
	}
	return 0
}

// SpeciesCare binds a species name to optional interval overrides. Zero
// fields fall back to the defaults.
type SpeciesCare struct {
	Name          string `yaml:"name"`
	CareIntervals `yaml:",inline"`
}

// ClimateBounds are the inclusive ranges a reading may fall in without an alarm.
type ClimateBounds struct {
	TemperatureMin float64 `yaml:"temperature_min"`
	TemperatureMax float64 `yaml:"temperature_max"`
	HumidityMin    float64 `yaml:"humidity_min"`
	HumidityMax    float64 `yaml:"humidity_max"`
}

// CareSettings is the on-disk care configuration.
type CareSettings struct {
	Species  []SpeciesCare `yaml:"species"`
	Defaults CareIntervals `yaml:"defaults"`
	Climate  ClimateBounds `yaml:"climate"`
}

// DefaultCareSettings returns the built-in configuration.
func DefaultCareSettings() CareSettings {
	return CareSettings{
		Species: []SpeciesCare{
			{Name: "Aloe Vera", CareIntervals: CareIntervals{WateringDays: 14}},
			{Name: "Cactus", CareIntervals: CareIntervals{WateringDays: 21, FertilizingDays: 60}},
			{Name: "Fern", CareIntervals: CareIntervals{WateringDays: 4}},
			{Name: "Ficus"},
			{Name: "Monstera"},
			{Name: "Orchid", CareIntervals: CareIntervals{WateringDays: 10, RepottingDays: 730}},
		},
		Defaults: CareIntervals{WateringDays: 7, FertilizingDays: 30, RepottingDays: 365},
		Climate:  ClimateBounds{TemperatureMin: 10, TemperatureMax: 35, HumidityMin: 30, HumidityMax: 90},
	}
}

// LoadCareSettings reads the YAML file at path. When the file does not exist
// it is created with DefaultCareSettings.
func LoadCareSettings(path string) (CareSettings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		settings := DefaultCareSettings()
		if err := SaveCareSettings(path, settings); err != nil {
			return CareSettings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return CareSettings{}, fmt.Errorf("read care settings: %w", err)
	}
	var settings CareSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return CareSettings{}, fmt.Errorf("parse care settings %s: %w", path, err)
	}
	settings.normalize()
	if err := settings.Validate(); err != nil {
		return CareSettings{}, fmt.Errorf("care settings %s: %w", path, err)
	}
	return settings, nil
}

// SaveCareSettings writes settings as YAML, creating parent directories.
func SaveCareSettings(path string, settings CareSettings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode care settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write care settings: %w", err)
	}
	return nil
}

// normalize fills zero defaults and climate bounds from the built-ins.
func (s *CareSettings) normalize() {
	builtin := DefaultCareSettings()
	if s.Defaults.WateringDays <= 0 {
		s.Defaults.WateringDays = builtin.Defaults.WateringDays
	}
	if s.Defaults.FertilizingDays <= 0 {
		s.Defaults.FertilizingDays = builtin.Defaults.FertilizingDays
	}
	if s.Defaults.RepottingDays <= 0 {
		s.Defaults.RepottingDays = builtin.Defaults.RepottingDays
	}
	if s.Climate == (ClimateBounds{}) {
		s.Climate = builtin.Climate
	}
}

// Validate reports inverted climate bounds and unnamed species.
func (s CareSettings) Validate() error {
	if s.Climate.TemperatureMin > s.Climate.TemperatureMax {
		return fmt.Errorf("temperature_min %.1f above temperature_max %.1f", s.Climate.TemperatureMin, s.Climate.TemperatureMax)
	}
	if s.Climate.HumidityMin > s.Climate.HumidityMax {
		return fmt.Errorf("humidity_min %.1f above humidity_max %.1f", s.Climate.HumidityMin, s.Climate.HumidityMax)
	}
	for i, sp := range s.Species {
		if strings.TrimSpace(sp.Name) == "" {
			return fmt.Errorf("species entry %d has no name", i)
		}
	}
	return nil
}

// SpeciesNames lists configured species for seeding.
func (s CareSettings) SpeciesNames() []string {
	names := make([]string, 0, len(s.Species))
	for _, sp := range s.Species {
		names = append(names, sp.Name)
	}
	return names
}

// IntervalDays resolves the interval for a species and event kind, falling
// back to the defaults for unknown species or unset fields.
func (s CareSettings) IntervalDays(species string, kind EventKind) int {
	for _, sp := range s.Species {
		if strings.EqualFold(sp.Name, species) {
			if days := sp.Days(kind); days > 0 {
				return days
			}
			break
		}
	}
	if days := s.Defaults.Days(kind); days > 0 {
		return days
	}
	return DefaultCareSettings().Defaults.Days(kind)
}
