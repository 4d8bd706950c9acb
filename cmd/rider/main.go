// Command rider serves the rider booking flow on a local HTTP API and, when a
// vehicle is assigned, follows that vehicle's plan.
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
	"vehicle-sync-service/internal/adapters/messaging"
	"vehicle-sync-service/internal/adapters/routing"
	"vehicle-sync-service/internal/api"
	"vehicle-sync-service/internal/api/handlers"
	"vehicle-sync-service/internal/config"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/platform/server"
	"vehicle-sync-service/internal/rider"
	"vehicle-sync-service/internal/services"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.1.0"
	appName = "vehicle-sync-rider"
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
		Use:           "rider",
		Short:         "Trip booking flow and vehicle watch for the rider app",
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
	cfg, err := config.Load(configPath, config.RoleRider)
	if err != nil {
		return err
	}

	logger := obs.NewLogger(os.Stdout, appName, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	client, err := backend.NewClient(cfg.Backend.URL,
		backend.WithToken(cfg.Backend.Token),
		backend.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	flowOpts := []rider.Option{rider.WithLogger(logger)}
	if cfg.ORS.APIKey != "" {
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

		orsOpts := []routing.ORSOption{
			routing.WithBaseURL(cfg.ORS.BaseURL),
			routing.WithCountry(cfg.ORS.Country),
			routing.WithLogger(logger),
		}
		if stores.Geocodes != nil {
			orsOpts = append(orsOpts, routing.WithGeocodeCache(stores.Geocodes))
		}
		geocoder, err := routing.NewORSClient(cfg.ORS.APIKey, orsOpts...)
		if err != nil {
			return err
		}
		flowOpts = append(flowOpts, rider.WithGeocoder(geocoder))
	} else {
		logger.Info("ORS_API_KEY not set, address lookup disabled")
	}

	flow, err := rider.NewWorkflow(ctx, client, flowOpts...)
	if err != nil {
		return err
	}

	rh := &handlers.RiderHandler{Flow: flow, Logger: logger}
	synced := func() bool { return true }

	g, ctx := errgroup.WithContext(ctx)

	if cfg.VehicleID != "" {
		syncCfg := services.RiderSyncConfig(cfg.VehicleID)
		syncCfg.PollInterval = cfg.Sync.PollInterval
		syncCfg.MaxRetries = cfg.Sync.MaxRetries
		syncCfg.RetryBackoff = cfg.Sync.RetryBackoff

		watch, err := services.NewSyncOrchestrator(syncCfg, client, nil, nil,
			services.WithSyncLogger(logger),
			services.WithSyncMetrics(metrics),
		)
		if err != nil {
			return err
		}
		rh.Vehicle = watch
		synced = func() bool { _, ok := watch.Display(); return ok }
		g.Go(func() error { return watch.Run(ctx) })

		if cfg.NATS.URL != "" {
			nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
			if err != nil {
				return fmt.Errorf("connect nats %q: %w", cfg.NATS.URL, err)
			}
			defer nc.Drain()
			listener := messaging.NewForceSyncListener(nc, cfg.VehicleID, watch, logger)
			g.Go(func() error { return listener.Run(ctx) })
		}
	}

	router := api.NewRiderRouter(api.RiderDeps{
		Handler:  rh,
		Synced:   synced,
		Gatherer: reg,
		Logger:   logger,
	})
	g.Go(func() error { return server.ListenAndServe(ctx, server.New(cfg.HTTP.Addr, router), logger) })

	logger.Info("rider ready", "vehicle_id", cfg.VehicleID, "version", Version)
	return g.Wait()
}
