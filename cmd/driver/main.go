// Command driver runs the on-vehicle sync engine: it polls the vehicle plan,
// reports location and route upstream and serves the driver main view on a
// local HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"vehicle-sync-service/internal/adapters/backend"
	"vehicle-sync-service/internal/adapters/cache"
	"vehicle-sync-service/internal/adapters/location"
	"vehicle-sync-service/internal/adapters/messaging"
	"vehicle-sync-service/internal/adapters/routing"
	"vehicle-sync-service/internal/api"
	"vehicle-sync-service/internal/api/handlers"
	"vehicle-sync-service/internal/config"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/driver"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/platform/server"
	"vehicle-sync-service/internal/ports"
	"vehicle-sync-service/internal/services"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.1.0"
	appName = "vehicle-sync-driver"

	simulatedAccuracyMeters = 5
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "driver",
		Short:         "Vehicle plan sync for the driver app",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath, config.RoleDriver)
	if err != nil {
		return err
	}

	logger := obs.NewLogger(os.Stdout, appName, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	stores, err := cache.Open(ctx, cache.Options{
		Driver:      cfg.Cache.Driver,
		SqlitePath:  cfg.Cache.SqlitePath,
		DatabaseURL: cfg.Cache.DatabaseURL,
		RedisAddr:   cfg.Cache.RedisAddr,
		TTL:         cfg.Cache.TTL,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer stores.Close()

	client, err := backend.NewClient(cfg.Backend.URL,
		backend.WithToken(cfg.Backend.Token),
		backend.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var updater ports.VehicleUpdater = client
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name(appName+"-"+cfg.VehicleID))
		if err != nil {
			return fmt.Errorf("connect nats %q: %w", cfg.NATS.URL, err)
		}
		defer nc.Drain()
		updater = messaging.NewMirrorUpdater(client, nc, logger)
	}

	routes, err := routeSource(cfg, stores, logger)
	if err != nil {
		return err
	}

	var locations ports.LocationSource
	if len(cfg.Simulation.Path) > 0 {
		path := make([]domain.Coordinates, 0, len(cfg.Simulation.Path))
		for _, p := range cfg.Simulation.Path {
			path = append(path, domain.Coordinates{Lon: p[0], Lat: p[1]})
		}
		sim, err := location.NewSimulatedLocator(path, simulatedAccuracyMeters)
		if err != nil {
			return err
		}
		locations = sim
	} else {
		logger.Warn("no location source configured, route sync disabled")
	}

	syncOpts := []services.RouteOption{
		services.WithRouteLogger(logger),
		services.WithRouteMetrics(metrics),
	}
	if stores.Legs != nil {
		syncOpts = append(syncOpts, services.WithLegCache(stores.Legs))
	}
	routeSync := services.NewRouteSynchronizer(cfg.VehicleID, routes, updater, syncOpts...)

	syncCfg := services.DriverSyncConfig(cfg.VehicleID)
	syncCfg.PollInterval = cfg.Sync.PollInterval
	syncCfg.LocationInterval = cfg.Sync.LocationInterval
	syncCfg.MaxRetries = cfg.Sync.MaxRetries
	syncCfg.RetryBackoff = cfg.Sync.RetryBackoff

	orchestrator, err := services.NewSyncOrchestrator(syncCfg, client, locations, routeSync,
		services.WithSyncLogger(logger),
		services.WithSyncMetrics(metrics),
	)
	if err != nil {
		return err
	}

	controller, err := driver.NewController(ctx, cfg.VehicleID, orchestrator, updater, driver.WithLogger(logger))
	if err != nil {
		return err
	}

	router := api.NewDriverRouter(api.DriverDeps{
		Handler: &handlers.DriverHandler{
			View:      controller,
			Legs:      stores.Legs,
			VehicleID: cfg.VehicleID,
			Logger:    logger,
		},
		Synced:   func() bool { _, ok := orchestrator.Display(); return ok },
		Gatherer: reg,
		Logger:   logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orchestrator.Run(ctx) })
	g.Go(func() error { return server.ListenAndServe(ctx, server.New(cfg.HTTP.Addr, router), logger) })
	if nc != nil {
		listener := messaging.NewForceSyncListener(nc, cfg.VehicleID, orchestrator, logger)
		g.Go(func() error { return listener.Run(ctx) })
	}

	logger.Info("driver ready", "vehicle_id", cfg.VehicleID, "version", Version, "simulated", cfg.Simulation.Enabled)
	return g.Wait()
}

func routeSource(cfg config.Config, stores *cache.Stores, logger *slog.Logger) (ports.RouteSource, error) {
	if cfg.Simulation.Enabled {
		return routing.NewMockRouteSource(cfg.Simulation.SpeedKmh), nil
	}

	opts := []routing.ORSOption{
		routing.WithBaseURL(cfg.ORS.BaseURL),
		routing.WithProfile(cfg.ORS.Profile),
		routing.WithCountry(cfg.ORS.Country),
		routing.WithLogger(logger),
	}
	if stores.Geocodes != nil {
		opts = append(opts, routing.WithGeocodeCache(stores.Geocodes))
	}
	return routing.NewORSClient(cfg.ORS.APIKey, opts...)
}
