package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"plantcare/internal/core"
	"plantcare/pkg/domain"
)

type reminderRow struct {
	core.Reminder
	Plant string
}

type ackRow struct {
	ID      int64
	Message string
	OK      bool
	Error   string
}

type dashboardView struct {
	shell
	Reminders    []reminderRow
	RemindersErr string
	Acks         []ackRow

	Overview    core.Table
	OverviewErr string

	StatsChart template.HTML
	StatsEmpty bool
	StatsErr   string

	SeriesErr   string
	SeriesEmpty bool
	Nicknames   []string
	Selected    string
	TempChart   template.HTML
	HumidChart  template.HTML
}

func (s *Server) dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.tmpl", s.buildDashboard(c.Request.Context(), c.Query("plant"), nil))
}

// acknowledge resolves every checked reminder, one statement each, and
// renders the refreshed dashboard with a per-row outcome.
func (s *Server) acknowledge(c *gin.Context) {
	var ids []int64
	for _, raw := range c.PostFormArray("resolve") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid reminder id %q", raw)
			return
		}
		ids = append(ids, id)
	}
	outcomes := s.svc.AcknowledgeReminders(c.Request.Context(), ids)
	acks := make([]ackRow, 0, len(outcomes))
	for _, o := range outcomes {
		row := ackRow{ID: o.ID, OK: o.OK()}
		switch {
		case o.OK():
			row.Message = fmt.Sprintf("Reminder %d resolved.", o.ID)
		case errors.Is(o.Err, domain.ErrReminderNotPending):
			row.Error = fmt.Sprintf("Reminder %d is no longer pending.", o.ID)
		default:
			row.Error = fmt.Sprintf("Reminder %d: %s", o.ID, dbError(o.Err))
			_ = c.Error(o.Err)
		}
		acks = append(acks, row)
	}
	c.HTML(http.StatusOK, "dashboard.tmpl", s.buildDashboard(c.Request.Context(), c.PostForm("plant"), acks))
}

func (s *Server) buildDashboard(ctx context.Context, selected string, acks []ackRow) dashboardView {
	view := dashboardView{shell: newShell("dashboard", "Plant status"), Acks: acks}

	nicknames := map[int64]string{}
	if plants, err := s.svc.ListPlants(ctx); err == nil {
		for _, p := range plants {
			nicknames[p.ID] = p.Nickname
		}
	}
	if reminders, err := s.svc.PendingReminders(ctx); err != nil {
		view.RemindersErr = dbError(err)
	} else {
		for _, r := range reminders {
			name := nicknames[r.PlantID]
			if name == "" {
				name = "#" + strconv.FormatInt(r.PlantID, 10)
			}
			view.Reminders = append(view.Reminders, reminderRow{Reminder: r, Plant: name})
		}
	}

	if overview, err := s.svc.StatusOverview(ctx); err != nil {
		view.OverviewErr = dbError(err)
	} else {
		view.Overview = overview
	}

	if stats, err := s.svc.CareStatistics(ctx); err != nil {
		view.StatsErr = dbError(err)
	} else {
		bars := make([]bar, 0, len(stats))
		for _, st := range stats {
			bars = append(bars, bar{Label: st.Nickname, Value: float64(st.TotalEvents)})
		}
		view.StatsEmpty = len(bars) == 0
		view.StatsChart = barChart("Care events per plant", bars)
	}

	series, err := s.svc.EnvironmentSeries(ctx)
	switch {
	case err != nil:
		view.SeriesErr = dbError(err)
	case len(series) == 0:
		view.SeriesEmpty = true
	default:
		view.Nicknames, view.Selected = seriesSelection(series, selected)
		var temps, humid []linePoint
		for _, p := range series {
			if p.Nickname != view.Selected {
				continue
			}
			temps = append(temps, linePoint{At: p.At, Value: p.Temperature})
			humid = append(humid, linePoint{At: p.At, Value: p.Humidity})
		}
		view.TempChart = lineChart("Temperature (°C) for "+view.Selected, "°C", temps)
		view.HumidChart = lineChart("Humidity (%) for "+view.Selected, "%", humid)
	}
	return view
}

// seriesSelection returns the distinct nicknames in order of first reading
// and the chosen one, defaulting to the first.
func seriesSelection(series []core.EnvironmentPoint, requested string) ([]string, string) {
	var names []string
	seen := map[string]struct{}{}
	for _, p := range series {
		if _, ok := seen[p.Nickname]; ok {
			continue
		}
		seen[p.Nickname] = struct{}{}
		names = append(names, p.Nickname)
	}
	if _, ok := seen[requested]; ok {
		return names, requested
	}
	return names, names[0]
}

// formatCell renders one status overview value.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04")
	case float64:
		return strconv.FormatFloat(x, 'f', 1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 1, 32)
	case string:
		if x == "" {
			return "-"
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

var templateFuncs = template.FuncMap{
	"cell": formatCell,
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02") },
}
