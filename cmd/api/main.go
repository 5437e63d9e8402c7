package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	domain "github.com/propstack/maintenance/internal/domain"
	"github.com/propstack/maintenance/internal/handlers"
	"github.com/propstack/maintenance/internal/platform/config"
	"github.com/propstack/maintenance/internal/platform/events"
	pfirestore "github.com/propstack/maintenance/internal/platform/firestore"
	"github.com/propstack/maintenance/internal/platform/idempotency"
	"github.com/propstack/maintenance/internal/platform/observability"
	platformstorage "github.com/propstack/maintenance/internal/platform/storage"
	firestoreRepo "github.com/propstack/maintenance/internal/repositories/firestore"
	"github.com/propstack/maintenance/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("maintenance")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	if host := strings.TrimSpace(cfg.PubSub.EmulatorHost); host != "" {
		_ = os.Setenv("PUBSUB_EMULATOR_HOST", host)
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()
	eventTopic := pubsubClient.Topic(cfg.PubSub.EventTopic)
	defer eventTopic.Stop()

	eventPublisher, err := events.NewPubSubPublisher(eventTopic)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}

	var signedURLClient *platformstorage.Client
	if signerKey := strings.TrimSpace(cfg.Storage.SignedURLKey); signerKey != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromJSON([]byte(signerKey))
		if err != nil {
			logger.Fatal("failed to parse storage signer key", zap.Error(err))
		}
		signedURLClient, err = platformstorage.NewClient(signer)
		if err != nil {
			logger.Fatal("failed to initialise signed url client", zap.Error(err))
		}
	} else {
		logger.Warn("storage signer key not configured; attachment URL endpoints disabled")
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	workOrderRepo, err := firestoreRepo.NewWorkOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise work order repository", zap.Error(err))
	}
	vendorRepo, err := firestoreRepo.NewVendorRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise vendor repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}

	vendorService, err := services.NewVendorService(services.VendorServiceDeps{
		Vendors:  vendorRepo,
		Counters: counterRepo,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise vendor service", zap.Error(err))
	}

	maintenanceLogger := logger.Named("maintenance_service")
	maintenanceService, err := services.NewMaintenanceService(services.MaintenanceServiceDeps{
		WorkOrders:            workOrderRepo,
		Vendors:               vendorRepo,
		Counters:              counterRepo,
		VendorPerf:            vendorService,
		SLA:                   slaConfigFromEnv(cfg.SLA),
		CostApprovalThreshold: cfg.Maintenance.CostApprovalThreshold,
		Clock:                 time.Now,
		Events:                eventPublisher,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			maintenanceLogger.Warn("maintenance log", zFields...)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise maintenance service", zap.Error(err))
	}

	workOrderHandlers := handlers.NewWorkOrderHandlers(maintenanceService)
	vendorHandlers := handlers.NewVendorHandlers(vendorService)
	internalHandlers := handlers.NewInternalHandlers(maintenanceService)

	var attachmentHandlers *handlers.AttachmentHandlers
	if signedURLClient != nil {
		attachmentHandlers = handlers.NewAttachmentHandlers(
			maintenanceService,
			signedURLClient,
			cfg.Storage.AttachmentsBucket,
			cfg.Storage.SignedURLTTL,
		)
	}

	healthHandlers := handlers.NewHealthHandlers()
	healthHandlers.AddReadinessCheck("firestore", func(ctx context.Context) error {
		iter := firestoreClient.Collections(ctx)
		_, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		return err
	})

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		idempotencyMiddleware,
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithWorkOrderRoutes(func(r chi.Router) {
			workOrderHandlers.Routes(r)
			if attachmentHandlers != nil {
				attachmentHandlers.Routes(r)
			}
		}),
		handlers.WithVendorRoutes(vendorHandlers.Routes),
		handlers.WithInternalRoutes(internalHandlers.Routes),
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweepWG sync.WaitGroup
	var sweepTicker *time.Ticker
	if cfg.SLA.SweepInterval > 0 {
		sweepTicker = time.NewTicker(cfg.SLA.SweepInterval)
		sweepWG.Add(1)
		go func() {
			defer sweepWG.Done()
			runSweepLoop(sweepCtx, sweepTicker, maintenanceService, firestoreClient, logger.Named("sla_sweep"))
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("maintenance api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	if sweepTicker != nil {
		sweepTicker.Stop()
	}
	sweepCancel()
	sweepWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runSweepLoop periodically scans every tenant with stored work orders and
// flips newly crossed SLA deadlines. Tenants are discovered from the top-level
// tenants collection; a document ref shows up there as soon as any tenant
// subcollection has data.
func runSweepLoop(ctx context.Context, ticker *time.Ticker, service services.MaintenanceService, client *firestore.Client, logger *zap.Logger) {
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			sweepAllTenants(runCtx, service, client, logger)
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

func sweepAllTenants(ctx context.Context, service services.MaintenanceService, client *firestore.Client, logger *zap.Logger) {
	refs := client.Collection("tenants").DocumentRefs(ctx)
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			return
		}
		if err != nil {
			logger.Error("sla sweep tenant listing failed", zap.Error(err))
			return
		}
		tenant := domain.TenantID(ref.ID)
		result, err := service.CheckSLABreaches(ctx, tenant)
		if err != nil {
			logger.Error("sla sweep failed", zap.String("tenant_id", ref.ID), zap.Error(err))
			continue
		}
		if result.ResponseBreaches > 0 || result.ResolutionBreaches > 0 {
			logger.Info("sla sweep flagged breaches",
				zap.String("tenant_id", ref.ID),
				zap.Int("scanned", result.Scanned),
				zap.Int("response_breaches", result.ResponseBreaches),
				zap.Int("resolution_breaches", result.ResolutionBreaches),
			)
		}
	}
}

func slaConfigFromEnv(cfg config.SLAConfig) domain.SLAConfig {
	return domain.SLAConfig{
		Emergency: domain.SLAWindow{Response: cfg.Emergency.Response, Resolution: cfg.Emergency.Resolution},
		High:      domain.SLAWindow{Response: cfg.High.Response, Resolution: cfg.High.Resolution},
		Medium:    domain.SLAWindow{Response: cfg.Medium.Response, Resolution: cfg.Medium.Resolution},
		Low:       domain.SLAWindow{Response: cfg.Low.Response, Resolution: cfg.Low.Resolution},
	}
}
