// Package app initializes and holds the long-lived services shared by the
// CLI commands, acting as a small dependency injection container.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/config"
	"github.com/startuplens/ycscout/internal/logging"
	"github.com/startuplens/ycscout/internal/ops"
	"github.com/startuplens/ycscout/internal/progress"
	"github.com/startuplens/ycscout/internal/progress/sinks"
	"github.com/startuplens/ycscout/internal/store"
	storepg "github.com/startuplens/ycscout/internal/store/postgres"
)

// App holds the shared, long-lived services for the application: the loaded
// configuration, the logger, the metrics registry, and the progress hub with
// its sinks. It is initialized once at startup and handed to the commands
// that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	hub      *progress.Hub
	state    *sinks.StateSink
	runStore *storepg.RunStore
	listener *ops.Listener
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetRegistry exposes the metrics registry shared by the progress sink and
// the ops server.
func (a *App) GetRegistry() *prometheus.Registry {
	return a.registry
}

// GetHub returns the progress hub the pipeline emits events to.
func (a *App) GetHub() *progress.Hub {
	return a.hub
}

// GetState returns the state sink backing the ops /progress endpoint.
func (a *App) GetState() *sinks.StateSink {
	return a.state
}

// New creates and initializes an App from an already loaded configuration.
// It is the central point for service initialization and fails fast when any
// service cannot be built. With store.provider=postgres the run history
// store joins the sink set and backs the ops /runs endpoints; with a
// progress Pub/Sub topic configured, events fan out to it as well. When
// ops.listen_addr is set, the ops HTTP listener is started in the background
// before New returns.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("register progress metrics: %w", err)
	}
	state := sinks.NewStateSink()
	sinkSet := []progress.Sink{state, promSink, sinks.NewLogSink(logger)}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		state:    state,
	}

	if cfg.Store.Provider == config.StorePostgres {
		runStore, err := storepg.NewRunStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("build run store: %w", err)
		}
		if err := runStore.EnsureSchema(ctx); err != nil {
			runStore.Close()
			return nil, fmt.Errorf("ensure run schema: %w", err)
		}
		a.runStore = runStore
		sinkSet = append(sinkSet, sinks.NewStoreSink(runStore, logger))
		logger.Info("run history store connected")
	}

	if cfg.Progress.PubSubProject != "" {
		pubsubSink, err := sinks.NewPubSubSink(ctx, cfg.Progress.PubSubProject, cfg.Progress.PubSubTopic, logger)
		if err != nil {
			a.closeRunStore()
			return nil, fmt.Errorf("build pubsub sink: %w", err)
		}
		sinkSet = append(sinkSet, pubsubSink)
		logger.Info("progress pubsub sink connected",
			zap.String("project", cfg.Progress.PubSubProject),
			zap.String("topic", cfg.Progress.PubSubTopic))
	}

	// The hub owns the sinks from here on; closing it flushes and closes them.
	a.hub = progress.NewHub(progress.Config{Logger: logger}, sinkSet...)

	if addr := cfg.Ops.ListenAddr; addr != "" {
		srv, err := ops.NewServer(state, a.runRepository(), registry, logger)
		if err != nil {
			_ = a.hub.Close(ctx)
			a.closeRunStore()
			return nil, fmt.Errorf("build ops server: %w", err)
		}
		a.listener = ops.NewListener(addr, srv.Handler(), logger)
		a.listener.Start()
		logger.Info("ops listener started", zap.String("addr", addr))
	}

	logger.Info("application services initialized")
	return a, nil
}

// Close gracefully shuts down the services in the container: the ops
// listener first, then the progress hub so queued events still flush to the
// sinks, and last the run store the sinks wrote to. It is called by a Cobra
// hook after the command finishes.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("shutting down application services")
	if a.listener != nil {
		if err := a.listener.Shutdown(ctx); err != nil {
			a.logger.Warn("ops listener shutdown", zap.Error(err))
		}
	}
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("progress hub close", zap.Error(err))
	}
	a.closeRunStore()
	// Sync can fail on stderr; nothing useful to do with the error at exit.
	_ = a.logger.Sync()
}

// runRepository returns the run store behind the repository interface; it
// stays a plain nil when no store is configured so handlers can test for it.
func (a *App) runRepository() store.RunRepository {
	if a.runStore == nil {
		return nil
	}
	return a.runStore
}

func (a *App) closeRunStore() {
	if a.runStore != nil {
		a.runStore.Close()
		a.runStore = nil
	}
}
