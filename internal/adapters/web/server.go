// Package web serves the plant-care dashboard: a sidebar shell over the
// dashboard, the three entry forms and the label generator.
package web

import (
	"context"
	"embed"
	"errors"
	"expvar"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plantcare/internal/blob"
	"plantcare/internal/core"
	"plantcare/internal/label"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Service is the subset of core.Service the screens use.
type Service interface {
	ListSpecies(ctx context.Context) ([]core.Species, error)
	ListPlants(ctx context.Context) ([]core.Plant, error)
	RegisterPlant(ctx context.Context, in core.PlantInput) (core.Plant, core.Result, error)
	LogCareEvent(ctx context.Context, plantID int64, kind core.EventKind, note string) (core.CareEvent, core.Result, error)
	RecordMeasurement(ctx context.Context, plantID int64, temperature, humidity float64) (core.Measurement, error)
	RecentEvents(ctx context.Context, limit int) ([]core.CareEvent, error)
	PendingReminders(ctx context.Context) ([]core.Reminder, error)
	AcknowledgeReminders(ctx context.Context, ids []int64) []core.AckOutcome
	StatusOverview(ctx context.Context) (core.Table, error)
	CareStatistics(ctx context.Context) ([]core.CareStatistic, error)
	EnvironmentSeries(ctx context.Context) ([]core.EnvironmentPoint, error)
	Ping(ctx context.Context) error
}

// Labels generates and lists archived pot labels.
type Labels interface {
	Generate(ctx context.Context, plantID int64) (label.Label, error)
	Archived(ctx context.Context, plantID int64) ([]blob.Info, error)
}

var _ Service = (*core.Service)(nil)
var _ Labels = (*label.Generator)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsHandler sets the handler mounted at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metrics = h
		}
	}
}

// Server holds the screen handlers.
type Server struct {
	svc     Service
	labels  Labels
	logger  *slog.Logger
	metrics http.Handler
}

// NewServer constructs a Server. The metrics endpoint defaults to the
// Prometheus default registry.
func NewServer(svc Service, labels Labels, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		labels:  labels,
		logger:  slog.New(slog.DiscardHandler),
		metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(requestLogger(s.logger), gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")))

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })
	r.GET("/dashboard", s.dashboard)
	r.POST("/dashboard/reminders", s.acknowledge)

	r.GET("/plants/new", s.plantForm)
	r.POST("/plants/new", s.createPlant)
	r.GET("/events/new", s.eventForm)
	r.POST("/events/new", s.createEvent)
	r.GET("/measurements/new", s.measurementForm)
	r.POST("/measurements/new", s.createMeasurement)

	labels := r.Group("/labels")
	{
		labels.GET("", s.labelScreen)
		labels.GET("/:id/image", s.labelImage)
		labels.GET("/:id/download", s.labelDownload)
	}

	r.GET("/metrics", gin.WrapH(s.metrics))
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	r.GET("/healthz", s.healthz)
	return r
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type navItem struct {
	Key   string
	Title string
	Path  string
}

var navigation = []navItem{
	{Key: "dashboard", Title: "Dashboard", Path: "/dashboard"},
	{Key: "plants", Title: "Add a new plant", Path: "/plants/new"},
	{Key: "events", Title: "Log a care event", Path: "/events/new"},
	{Key: "measurements", Title: "Record a measurement", Path: "/measurements/new"},
	{Key: "labels", Title: "Generate QR labels", Path: "/labels"},
}

// shell is embedded by every page view.
type shell struct {
	Title  string
	Active string
	Nav    []navItem
}

func newShell(active, title string) shell {
	return shell{Title: title, Active: active, Nav: navigation}
}

// dbError formats a store failure for inline display.
func dbError(err error) string {
	return "Database error: " + err.Error()
}

func isNotFound(err error) bool {
	var nf core.ErrNotFound
	return errors.As(err, &nf) || errors.Is(err, blob.ErrNotFound)
}
