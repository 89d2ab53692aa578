// Command plantcare serves the plant-care dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plantcare/internal/adapters/web"
	"plantcare/internal/blob"
	"plantcare/internal/core"
	"plantcare/internal/label"
)

const shutdownTimeout = 10 * time.Second

// expvar names are process-global, so the recorder is published once.
var serviceMetrics = sync.OnceValue(func() *core.ExpvarMetricsRecorder {
	return core.NewExpvarMetricsRecorder("plantcare_service_metrics")
})

type options struct {
	addr     string
	settings string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	logger, err := newLogger(stderr, os.Getenv("PLANTCARE_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	a, err := setup(ctx, opts, logger, stderr)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Addr: opts.addr, Handler: a.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return 1
		}
		logger.Info("stopped")
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("plantcare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&opts.settings, "settings", "plantcare.yaml", "care settings file, created with defaults when missing")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
			return nil, fmt.Errorf("invalid PLANTCARE_LOG_LEVEL %q: %w", level, err)
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

type app struct {
	handler http.Handler
	service *core.Service
	tracer  *core.JSONTraceTracer
	close   func()
}

// setup loads settings and wires the store, label archive, observability
// and HTTP handler.
func setup(ctx context.Context, opts options, logger *slog.Logger, traceOut io.Writer) (*app, error) {
	settings, err := core.LoadCareSettings(opts.settings)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(ctx, core.NewDefaultRulesEngine(settings, nil))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	archive, err := blob.Open(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open label archive: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !logger.Enabled(ctx, slog.LevelDebug) {
		traceOut = nil
	}
	tracer := core.NewJSONTracer(traceOut)

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithCareSettings(settings),
		core.WithMetricsRecorder(core.MultiMetricsRecorder{serviceMetrics(), prom}),
		core.WithTracer(tracer),
		core.WithAuditRecorder(core.LoggerAuditRecorder{Logger: logger}),
	)
	if err := svc.SeedSpecies(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed species: %w", err)
	}
	labels := label.NewGenerator(svc, archive, label.WithLogger(logger))
	srv := web.NewServer(svc, labels,
		web.WithLogger(logger),
		web.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)
	logger.Info("plantcare ready",
		"settings", opts.settings,
		"species", len(settings.Species),
		"blob_driver", archive.Driver(),
	)
	return &app{
		handler: srv.Handler(),
		service: svc,
		tracer:  tracer,
		close:   func() { _ = store.Close() },
	}, nil
}
