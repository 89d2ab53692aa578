package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"plantcare/internal/core"
	"plantcare/pkg/domain"
)

const (
	defaultTemperature = "22.0"
	defaultHumidity    = "50"
	recentEventLimit   = 10
)

type kindOption struct {
	Value string
	Label string
}

type eventRow struct {
	core.CareEvent
	Plant string
}

type formView struct {
	shell
	LoadErr string
	NoData  string
	Success string
	Error   string
	Notes   []string
	Alarms  []core.Reminder
	Recent  []eventRow

	RecentErr string

	Species []core.Species
	Plants  []core.Plant
	Kinds   []kindOption

	// Submitted or default field values.
	SpeciesID   int64
	PlantID     int64
	Nickname    string
	ImageURL    string
	Kind        string
	Note        string
	Temperature string
	Humidity    string
}

type plantForm struct {
	SpeciesID int64  `form:"species_id" binding:"required"`
	Nickname  string `form:"nickname"`
	ImageURL  string `form:"image_url"`
}

type eventForm struct {
	PlantID int64  `form:"plant_id" binding:"required"`
	Kind    string `form:"kind" binding:"required"`
	Note    string `form:"note"`
}

type measurementForm struct {
	PlantID     int64  `form:"plant_id" binding:"required"`
	Temperature string `form:"temperature"`
	Humidity    string `form:"humidity"`
}

func (s *Server) plantForm(c *gin.Context) {
	c.HTML(http.StatusOK, "plant_form.tmpl", s.plantView(c.Request.Context()))
}

func (s *Server) plantView(ctx context.Context) formView {
	view := formView{shell: newShell("plants", "Add a new plant")}
	species, err := s.svc.ListSpecies(ctx)
	if err != nil {
		view.LoadErr = dbError(err)
		return view
	}
	view.Species = species
	if len(species) > 0 {
		view.SpeciesID = species[0].ID
	}
	return view
}

func (s *Server) createPlant(c *gin.Context) {
	view := s.plantView(c.Request.Context())
	var in plantForm
	if err := c.ShouldBind(&in); err != nil {
		view.Error = "Invalid input: " + err.Error()
		c.HTML(http.StatusBadRequest, "plant_form.tmpl", view)
		return
	}
	view.SpeciesID, view.Nickname, view.ImageURL = in.SpeciesID, in.Nickname, in.ImageURL
	if strings.TrimSpace(in.Nickname) == "" {
		view.Error = "Nickname is required."
		c.HTML(http.StatusBadRequest, "plant_form.tmpl", view)
		return
	}
	plant, _, err := s.svc.RegisterPlant(c.Request.Context(), core.PlantInput{
		SpeciesID: in.SpeciesID,
		Nickname:  in.Nickname,
		ImageURL:  strings.TrimSpace(in.ImageURL),
	})
	if err != nil {
		_ = c.Error(err)
		view.Error = dbError(err)
		c.HTML(http.StatusOK, "plant_form.tmpl", view)
		return
	}
	view.Success = fmt.Sprintf("Plant %s added.", plant.Nickname)
	view.Nickname, view.ImageURL = "", ""
	c.HTML(http.StatusOK, "plant_form.tmpl", view)
}

func (s *Server) eventForm(c *gin.Context) {
	s.renderEvents(c, http.StatusOK, s.eventView(c.Request.Context()))
}

// renderEvents attaches the latest events, so a successful submit already
// lists the new row.
func (s *Server) renderEvents(c *gin.Context, status int, view formView) {
	if len(view.Plants) > 0 {
		events, err := s.svc.RecentEvents(c.Request.Context(), recentEventLimit)
		if err != nil {
			_ = c.Error(err)
			view.RecentErr = dbError(err)
		}
		for _, e := range events {
			view.Recent = append(view.Recent, eventRow{CareEvent: e, Plant: plantName(view.Plants, e.PlantID)})
		}
	}
	c.HTML(status, "event_form.tmpl", view)
}

func (s *Server) eventView(ctx context.Context) formView {
	view := formView{shell: newShell("events", "Log a care event")}
	for _, k := range domain.EventKinds {
		view.Kinds = append(view.Kinds, kindOption{Value: string(k), Label: k.Label()})
	}
	view.Kind = string(domain.EventWatering)
	s.loadPlants(ctx, &view, "You need to add a plant first!")
	return view
}

func (s *Server) createEvent(c *gin.Context) {
	ctx := c.Request.Context()
	view := s.eventView(ctx)
	if view.NoData != "" {
		s.renderEvents(c, http.StatusBadRequest, view)
		return
	}
	var in eventForm
	if err := c.ShouldBind(&in); err != nil {
		view.Error = "Invalid input: " + err.Error()
		s.renderEvents(c, http.StatusBadRequest, view)
		return
	}
	view.PlantID, view.Kind, view.Note = in.PlantID, in.Kind, in.Note
	kind, err := domain.ParseEventKind(in.Kind)
	if err != nil {
		view.Error = "Invalid input: " + err.Error()
		s.renderEvents(c, http.StatusBadRequest, view)
		return
	}
	event, res, err := s.svc.LogCareEvent(ctx, in.PlantID, kind, in.Note)
	if err != nil {
		_ = c.Error(err)
		view.Error = dbError(err)
		s.renderEvents(c, http.StatusOK, view)
		return
	}
	view.Success = fmt.Sprintf("%s logged for %s.", kind.Label(), plantName(view.Plants, event.PlantID))
	for _, r := range res.Reminders {
		view.Notes = append(view.Notes, fmt.Sprintf("Reminder set: %s (%s)", r.Message, r.TargetDate.UTC().Format("2006-01-02")))
	}
	view.Note = ""
	s.renderEvents(c, http.StatusOK, view)
}

func (s *Server) measurementForm(c *gin.Context) {
	c.HTML(http.StatusOK, "measurement_form.tmpl", s.measurementView(c.Request.Context()))
}

func (s *Server) measurementView(ctx context.Context) formView {
	view := formView{
		shell:       newShell("measurements", "Record a measurement"),
		Temperature: defaultTemperature,
		Humidity:    defaultHumidity,
	}
	s.loadPlants(ctx, &view, "No plants yet.")
	return view
}

func (s *Server) createMeasurement(c *gin.Context) {
	ctx := c.Request.Context()
	view := s.measurementView(ctx)
	if view.NoData != "" {
		c.HTML(http.StatusBadRequest, "measurement_form.tmpl", view)
		return
	}
	var in measurementForm
	if err := c.ShouldBind(&in); err != nil {
		view.Error = "Invalid input: " + err.Error()
		c.HTML(http.StatusBadRequest, "measurement_form.tmpl", view)
		return
	}
	view.PlantID, view.Temperature, view.Humidity = in.PlantID, in.Temperature, in.Humidity
	temperature, err := strconv.ParseFloat(strings.TrimSpace(in.Temperature), 64)
	if err != nil {
		view.Error = fmt.Sprintf("Temperature must be a number, got %q.", in.Temperature)
		c.HTML(http.StatusBadRequest, "measurement_form.tmpl", view)
		return
	}
	humidity, err := strconv.ParseFloat(strings.TrimSpace(in.Humidity), 64)
	if err != nil {
		view.Error = fmt.Sprintf("Humidity must be a number, got %q.", in.Humidity)
		c.HTML(http.StatusBadRequest, "measurement_form.tmpl", view)
		return
	}
	m, err := s.svc.RecordMeasurement(ctx, in.PlantID, temperature, humidity)
	if err != nil {
		_ = c.Error(err)
		view.Error = dbError(err)
		c.HTML(http.StatusOK, "measurement_form.tmpl", view)
		return
	}
	view.Success = fmt.Sprintf("Measurement saved for %s.", plantName(view.Plants, m.Reading.PlantID))
	view.Alarms = m.Alarms
	c.HTML(http.StatusOK, "measurement_form.tmpl", view)
}

func (s *Server) loadPlants(ctx context.Context, view *formView, empty string) {
	plants, err := s.svc.ListPlants(ctx)
	switch {
	case err != nil:
		view.LoadErr = dbError(err)
	case len(plants) == 0:
		view.NoData = empty
	default:
		view.Plants = plants
		view.PlantID = plants[0].ID
	}
}

func plantName(plants []core.Plant, id int64) string {
	for _, p := range plants {
		if p.ID == id {
			return p.Nickname
		}
	}
	return "plant " + strconv.FormatInt(id, 10)
}
