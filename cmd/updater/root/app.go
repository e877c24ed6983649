package root

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/updater"
	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/updater/internal/logging"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/GriffinCanCode/AgentOS/updater/internal/storage/kv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the collaborators built for one command invocation
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    kv.Store
	reporter *remote.Reporter
	registry *prometheus.Registry
	manager  *updater.Manager
	format   string
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logger())
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := kv.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	client := remote.NewClient(cfg.Client())
	reporter := remote.NewReporter(client, cfg.Reporter(), logger.Logger, metrics)

	manager := updater.NewManager(updater.Options{
		Store:      store,
		Layout:     cfg.Layout(),
		Downloader: client,
		Latest:     client,
		Stats:      reporter,
		Device:     cfg.RemoteDevice(),
		Logger:     logger.Logger,
		Metrics:    metrics,
	})

	logger.Debug("Updater ready",
		zap.String("store", cfg.Store.Backend),
		zap.String("hot", cfg.Paths.HotRoot),
		zap.String("persist", cfg.Paths.PersistRoot))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		reporter: reporter,
		registry: registry,
		manager:  manager,
	}, nil
}

// print renders v to the command output in the selected format
func (a *app) print(cmd *cobra.Command, v interface{}) error {
	return render(cmd.OutOrStdout(), a.format, v)
}

// close waits for in-flight stats events, then releases the store. When
// metricsFile is set the collected metrics are written there.
func (a *app) close(metricsFile string) error {
	a.reporter.Wait()

	var firstErr error
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, a.registry); err != nil {
			firstErr = fmt.Errorf("write metrics: %w", err)
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	a.logger.Close()
	return firstErr
}
