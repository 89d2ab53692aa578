package web

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plantcare/internal/blob"
	"plantcare/internal/core"
	"plantcare/internal/label"
)

func init() { gin.SetMode(gin.TestMode) }

var testNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *core.Service
	archive blob.Store
	handler http.Handler
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("PLANTCARE_STORAGE_DRIVER", "sqlite")
	t.Setenv("PLANTCARE_SQLITE_PATH", filepath.Join(t.TempDir(), "web.db"))
	t.Setenv("PLANTCARE_DB_MAX_CONNS", "")
	ctx := context.Background()
	settings := core.DefaultCareSettings()
	clock := core.ClockFunc(func() time.Time { return testNow })
	store, err := core.OpenPersistentStore(ctx, core.NewDefaultRulesEngine(settings, clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("prometheus: %v", err)
	}
	svc := core.NewService(store, core.WithCareSettings(settings), core.WithClock(clock), core.WithMetricsRecorder(prom))
	if err := svc.SeedSpecies(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	archive := blob.NewMemory()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	srv := NewServer(svc, label.NewGenerator(svc, archive),
		WithLogger(logger),
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	return &fixture{svc: svc, archive: archive, handler: srv.Handler(), logs: logs}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *fixture) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) speciesID(t *testing.T, name string) int64 {
	t.Helper()
	list, err := f.svc.ListSpecies(context.Background())
	if err != nil {
		t.Fatalf("list species: %v", err)
	}
	for _, sp := range list {
		if sp.Name == name {
			return sp.ID
		}
	}
	t.Fatalf("species %q not seeded", name)
	return 0
}

func (f *fixture) plant(t *testing.T, species, nickname string) core.Plant {
	t.Helper()
	p, _, err := f.svc.RegisterPlant(context.Background(), core.PlantInput{SpeciesID: f.speciesID(t, species), Nickname: nickname})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Fatalf("expected body to contain %q\n%s", want, body)
	}
}

func assertNotContains(t *testing.T, body, unwanted string) {
	t.Helper()
	if strings.Contains(body, unwanted) {
		t.Fatalf("expected body not to contain %q", unwanted)
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("unexpected redirect %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestNavigationListsFiveScreens(t *testing.T) {
	f := newFixture(t)
	body := f.get(t, "/dashboard").Body.String()
	for _, path := range []string{"/dashboard", "/plants/new", "/events/new", "/measurements/new", "/labels"} {
		assertContains(t, body, `href="`+path+`"`)
	}
	assertContains(t, body, `href="/dashboard" class="active"`)
}

func TestDashboardEmptyStates(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "No pending reminders. All plants are happy!")
	assertContains(t, body, "No measurements recorded yet.")
	assertNotContains(t, body, `name="resolve"`)
}

func TestPlantForm(t *testing.T) {
	f := newFixture(t)
	body := f.get(t, "/plants/new").Body.String()
	assertContains(t, body, ">Monstera</option>")

	rec := f.post(t, "/plants/new", url.Values{
		"species_id": {strconv.FormatInt(f.speciesID(t, "Fern"), 10)},
		"nickname":   {"Office Fern"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Plant Office Fern added.")
	plants, err := f.svc.ListPlants(context.Background())
	if err != nil || len(plants) != 1 || plants[0].Nickname != "Office Fern" {
		t.Fatalf("plants %+v err=%v", plants, err)
	}

	rec = f.post(t, "/plants/new", url.Values{"species_id": {"1"}, "nickname": {"   "}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank nickname status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Nickname is required.")

	rec = f.post(t, "/plants/new", url.Values{"species_id": {"9999"}, "nickname": {"Ghost"}})
	assertContains(t, rec.Body.String(), "Database error: species 9999 not found")
}

func TestEventFormRequiresPlant(t *testing.T) {
	f := newFixture(t)
	body := f.get(t, "/events/new").Body.String()
	assertContains(t, body, "You need to add a plant first!")
	assertNotContains(t, body, `action="/events/new"`)

	rec := f.post(t, "/events/new", url.Values{"plant_id": {"1"}, "kind": {"watering"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit without plants status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "You need to add a plant first!")
	assertNotContains(t, rec.Body.String(), "Database error")
	if events, err := f.svc.RecentEvents(context.Background(), 10); err != nil || len(events) != 0 {
		t.Fatalf("expected no events, got %+v err=%v", events, err)
	}
}

func TestMeasurementSubmitRequiresPlant(t *testing.T) {
	f := newFixture(t)
	rec := f.post(t, "/measurements/new", url.Values{"plant_id": {"1"}, "temperature": {"40"}, "humidity": {"50"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit without plants status %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "No plants yet.")
	assertNotContains(t, body, "Database error")
	assertNotContains(t, body, `action="/measurements/new"`)
	if series, err := f.svc.EnvironmentSeries(context.Background()); err != nil || len(series) != 0 {
		t.Fatalf("expected no readings, got %+v err=%v", series, err)
	}
}

func TestEventFormCreatesReminder(t *testing.T) {
	f := newFixture(t)
	p := f.plant(t, "Fern", "Fernie")
	rec := f.post(t, "/events/new", url.Values{
		"plant_id": {strconv.FormatInt(p.ID, 10)},
		"kind":     {"watering"},
		"note":     {"soaked"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	assertContains(t, body, "Watering logged for Fernie.")
	assertContains(t, body, "Reminder set: Water Fernie again (2026-05-14)")
	assertContains(t, body, "Recent care events")
	assertContains(t, body, "<td>soaked</td>")
	assertNotContains(t, body, "No care events recorded yet.")

	dash := f.get(t, "/dashboard").Body.String()
	assertContains(t, dash, "Water Fernie again")
	assertNotContains(t, dash, "No pending reminders")

	rec = f.post(t, "/events/new", url.Values{"plant_id": {strconv.FormatInt(p.ID, 10)}, "kind": {"pruning"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "unknown event kind")
}

func TestMeasurementForm(t *testing.T) {
	f := newFixture(t)
	assertContains(t, f.get(t, "/measurements/new").Body.String(), "No plants yet.")

	p := f.plant(t, "Orchid", "Phal")
	body := f.get(t, "/measurements/new").Body.String()
	assertContains(t, body, `name="temperature" value="22.0"`)
	assertContains(t, body, `name="humidity" value="50"`)

	id := strconv.FormatInt(p.ID, 10)
	rec := f.post(t, "/measurements/new", url.Values{"plant_id": {id}, "temperature": {"warm"}, "humidity": {"50"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Temperature must be a number")

	rec = f.post(t, "/measurements/new", url.Values{"plant_id": {id}, "temperature": {"21.5"}, "humidity": {"55"}})
	assertContains(t, rec.Body.String(), "Measurement saved for Phal.")
	assertNotContains(t, rec.Body.String(), `class="alarm"`)

	rec = f.post(t, "/measurements/new", url.Values{"plant_id": {id}, "temperature": {"40"}, "humidity": {"55"}})
	body = rec.Body.String()
	assertContains(t, body, `class="alarm"`)
	assertContains(t, body, "URGENT: Phal temperature 40.0°C outside 10.0–35.0°C")

	rec = f.post(t, "/measurements/new", url.Values{"plant_id": {id}, "temperature": {"40"}, "humidity": {"55"}})
	assertContains(t, rec.Body.String(), "URGENT: Phal temperature 40.0°C outside 10.0–35.0°C")
	if pending, err := f.svc.PendingReminders(context.Background()); err != nil || len(pending) != 1 {
		t.Fatalf("expected one open alarm, got %+v err=%v", pending, err)
	}

	rec = f.post(t, "/measurements/new", url.Values{"plant_id": {id}, "temperature": {"20"}, "humidity": {"150"}})
	assertContains(t, rec.Body.String(), "Database error:")

	dash := f.get(t, "/dashboard").Body.String()
	assertNotContains(t, dash, "No measurements recorded yet.")
	assertContains(t, dash, `<option value="Phal" selected>`)
	assertContains(t, dash, "Temperature (°C) for Phal")
	assertContains(t, dash, "<polyline")
}

func TestDashboardSeriesSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.plant(t, "Ficus", "Alpha")
	b := f.plant(t, "Cactus", "Beta")
	for _, id := range []int64{a.ID, b.ID} {
		if _, err := f.svc.RecordMeasurement(ctx, id, 20, 50); err != nil {
			t.Fatalf("measure: %v", err)
		}
	}
	body := f.get(t, "/dashboard").Body.String()
	assertContains(t, body, `<option value="Alpha" selected>`)
	body = f.get(t, "/dashboard?plant=Beta").Body.String()
	assertContains(t, body, `<option value="Beta" selected>`)
	assertContains(t, body, "Humidity (%) for Beta")
	body = f.get(t, "/dashboard?plant=Nobody").Body.String()
	assertContains(t, body, `<option value="Alpha" selected>`)
}

func TestAcknowledgeReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.plant(t, "Fern", "Fernie")
	q := f.plant(t, "Cactus", "Spike")
	_, first, err := f.svc.LogCareEvent(ctx, p.ID, core.EventWatering, "")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if _, _, err := f.svc.LogCareEvent(ctx, q.ID, core.EventRepotting, ""); err != nil {
		t.Fatalf("event: %v", err)
	}
	target := first.Reminders[0].ID

	rec := f.post(t, "/dashboard/reminders", url.Values{"resolve": {strconv.FormatInt(target, 10)}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Reminder "+strconv.FormatInt(target, 10)+" resolved.")
	assertNotContains(t, body, "Water Fernie again")
	assertContains(t, body, "Repot Spike")

	rec = f.post(t, "/dashboard/reminders", url.Values{"resolve": {strconv.FormatInt(target, 10)}})
	assertContains(t, rec.Body.String(), "Reminder "+strconv.FormatInt(target, 10)+" is no longer pending.")
	assertNotContains(t, rec.Body.String(), "Database error")

	rec = f.post(t, "/dashboard/reminders", url.Values{"resolve": {"abc"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status %d", rec.Code)
	}
}

func TestDashboardOverviewAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.plant(t, "Monstera", "Monty")
	if _, _, err := f.svc.LogCareEvent(ctx, p.ID, core.EventFertilizing, ""); err != nil {
		t.Fatalf("event: %v", err)
	}
	body := f.get(t, "/dashboard").Body.String()
	assertContains(t, body, "<th>nickname</th>")
	assertContains(t, body, "<td>Monty</td>")
	assertContains(t, body, `<rect class="bar"`)
	assertContains(t, body, "<title>Monty: 1</title>")
}

func TestLabelScreen(t *testing.T) {
	f := newFixture(t)
	assertContains(t, f.get(t, "/labels").Body.String(), "No plants in the database.")

	p := f.plant(t, "Aloe Vera", "Mr Aloe")
	body := f.get(t, "/labels").Body.String()
	assertContains(t, body, ">Mr Aloe</option>")
	assertNotContains(t, body, "<img")

	id := strconv.FormatInt(p.ID, 10)
	body = f.get(t, "/labels?plant="+id).Body.String()
	assertContains(t, body, `src="/labels/`+id+`/image"`)
	assertContains(t, body, "https://www.google.com/search?q=Aloe%20Vera%20care%20and%20tips")
	assertContains(t, body, "Archived as labels/"+id+"/qr_Mr_Aloe.png")

	body = f.get(t, "/labels?plant="+id).Body.String()
	assertContains(t, body, "Already archived as labels/"+id+"/qr_Mr_Aloe.png")

	rec := f.get(t, "/labels?plant=999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown plant status %d", rec.Code)
	}
	if rec := f.get(t, "/labels?plant=x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status %d", rec.Code)
	}
}

func TestLabelImageAndDownload(t *testing.T) {
	f := newFixture(t)
	p := f.plant(t, "Cactus", "Spike")
	id := strconv.FormatInt(p.ID, 10)

	rec := f.get(t, "/labels/"+id+"/image")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("image status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("decode png: %v", err)
	}

	rec = f.get(t, "/labels/"+id+"/download")
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=qr_Spike.png" {
		t.Fatalf("content disposition %q", got)
	}

	_, rc, err := f.archive.Get(context.Background(), label.ArchiveKey(p.ID, p.Nickname))
	if err != nil {
		t.Fatalf("archived label missing: %v", err)
	}
	archived, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(archived, rec.Body.Bytes()) {
		t.Fatalf("download differs from archived label")
	}

	if rec := f.get(t, "/labels/999/image"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing plant status %d", rec.Code)
	}
	if rec := f.get(t, "/labels/abc/download"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status %d", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), `"status":"ok"`)

	body := f.get(t, "/metrics").Body.String()
	assertContains(t, body, "plantcare_operations_total")
	assertContains(t, body, `operation="ping"`)
}

func TestRequestLoggerTagsRequests(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("request id not echoed")
	}
	assertContains(t, f.logs.String(), `"request_id":"req-42"`)

	rec = f.get(t, "/healthz")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

type brokenService struct{ Service }

var errBroken = errors.New("connection refused")

func (brokenService) ListPlants(context.Context) ([]core.Plant, error) {
	return nil, errBroken
}

func (brokenService) ListSpecies(context.Context) ([]core.Species, error) {
	return nil, errBroken
}

func (brokenService) PendingReminders(context.Context) ([]core.Reminder, error) {
	return nil, errBroken
}

func (brokenService) StatusOverview(context.Context) (core.Table, error) {
	return core.Table{}, errBroken
}

func (brokenService) CareStatistics(context.Context) ([]core.CareStatistic, error) {
	return nil, errBroken
}

func (brokenService) EnvironmentSeries(context.Context) ([]core.EnvironmentPoint, error) {
	return nil, errBroken
}

func (brokenService) RecentEvents(context.Context, int) ([]core.CareEvent, error) {
	return nil, errBroken
}

func (brokenService) Ping(context.Context) error {
	return errBroken
}

func TestStoreFailuresRenderInline(t *testing.T) {
	h := NewServer(brokenService{}, label.NewGenerator(nil, nil)).Handler()
	for _, path := range []string{"/dashboard", "/plants/new", "/events/new", "/measurements/new", "/labels"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status %d", path, rec.Code)
		}
		assertContains(t, rec.Body.String(), "Database error: connection refused")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz status %d", rec.Code)
	}
}
