package cmd

import (
	"context"
	"fmt"
	"time"

	"wagernotify/api"
	"wagernotify/config"
	"wagernotify/database"
	"wagernotify/events"
	"wagernotify/infrastructure"
	"wagernotify/infrastructure/observability"
	"wagernotify/repository"
	"wagernotify/service"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const receiptPruneInterval = time.Hour

// Run wires the notification pipeline to its ingress adapters and blocks
// until ctx is cancelled or a component fails
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting wagernotify")

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	}()

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	sender, err := newPushSender(ctx, cfg)
	if err != nil {
		return err
	}

	opts := service.Options{
		Concurrency:   cfg.DispatchConcurrency,
		RatePerSecond: cfg.DispatchRatePerSecond,
		LookupTimeout: cfg.LookupTimeout,
		Metrics:       metrics,
	}
	var receipts *repository.ReceiptRepository
	if cfg.DedupEnabled {
		receipts = repository.NewReceiptRepository(db)
		opts.Receipts = receipts
		log.Info("Duplicate suppression enabled")
	}

	notifications := service.NewNotificationService(
		repository.NewGroupRepository(db),
		repository.NewWagerRepository(db),
		repository.NewUserRepository(db),
		sender,
		opts,
	)

	bus := events.NewBus()
	notifications.Register(bus)

	g, gctx := errgroup.WithContext(ctx)
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping(ctx) },
	}

	if servers := cfg.NATSServerList(); len(servers) > 0 {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		consumer := infrastructure.NewMessageConsumer(natsClient, bus)
		checks["nats"] = func(ctx context.Context) error {
			if !natsClient.IsConnected() {
				return fmt.Errorf("not connected")
			}
			return nil
		}
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	if cfg.HTTPAddr != "" {
		server := api.New(cfg.HTTPAddr, bus, checks)
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	if receipts != nil && cfg.ReceiptRetention > 0 {
		g.Go(func() error {
			pruneReceipts(gctx, receipts, cfg.ReceiptRetention)
			return nil
		})
	}

	log.Info("wagernotify is running")
	err = g.Wait()
	log.Info("Shutting down wagernotify")
	return err
}

func newPushSender(ctx context.Context, cfg *config.Config) (service.PushSender, error) {
	switch cfg.PushProvider {
	case config.PushProviderLog:
		log.Warn("Using log push sender, notifications will not be delivered")
		return infrastructure.NewLogSender(), nil
	default:
		sender, err := infrastructure.NewFCMSender(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create FCM sender: %w", err)
		}
		log.WithField("projectId", cfg.FirebaseProjectID).Info("FCM sender initialized")
		return sender, nil
	}
}

// pruneReceipts deletes expired dedup receipts until ctx is done
func pruneReceipts(ctx context.Context, receipts *repository.ReceiptRepository, retention time.Duration) {
	ticker := time.NewTicker(receiptPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := receipts.DeleteOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				log.WithError(err).Warn("Failed to prune notification receipts")
				continue
			}
			if deleted > 0 {
				log.WithField("deleted", deleted).Info("Pruned notification receipts")
			}
		}
	}
}
