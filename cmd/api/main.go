package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	httpDelivery "latency-monitor/internal/adapter/delivery/http"
	"latency-monitor/internal/adapter/i18n"
	"latency-monitor/internal/adapter/rpc"
	"latency-monitor/internal/adapter/storage/chainlist"
	"latency-monitor/internal/adapter/storage/memory"
	"latency-monitor/internal/application"
	"latency-monitor/internal/config"
	"latency-monitor/internal/domain"
	"latency-monitor/internal/logger"
	"latency-monitor/internal/metrics"
	"latency-monitor/internal/pkg/notify"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfgPath := "configs"
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// --- Logger ---
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Logger initialized", zap.Any("config", cfg.Logger))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// --- Dependency Injection (Manual) ---
	appLogger.Info("Initializing dependencies...")

	notifier := notify.NewManager()
	queryCache := memory.NewQueryCache(cfg.Cache, appLogger)
	errorStore := memory.NewErrorStore(appLogger, appMetrics)

	translator, err := i18n.New(cfg.Monitor.Locale, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load translations", zap.Error(err))
	}

	bridge := application.NewSlowQueryBridge(queryCache, notifier, cfg.Monitor.GetSlowThreshold(), appLogger)

	var monitors sync.WaitGroup
	for i := 0; i < cfg.Monitor.Instances; i++ {
		monitor := application.NewLatencyMonitor(
			fmt.Sprintf("monitor-%d", i+1),
			bridge, errorStore, translator, cfg.Monitor.Priority, appLogger, appMetrics,
		)
		monitors.Add(1)
		go func() {
			defer monitors.Done()
			monitor.Run(rootCtx)
		}()
	}

	queryClient := application.NewQueryClient(queryCache, notifier, appLogger)
	rpcChecker := rpc.NewChecker(cfg.Prober.GetTimeout(), appLogger)
	chainRepo := chainlist.NewRepository(cfg.Chainlist, appLogger)

	prober := application.NewProberService(rootCtx, queryClient, rpcChecker, chainRepo, appLogger, appMetrics, *cfg)
	if err := prober.Start(); err != nil {
		if !errors.Is(err, domain.ErrNoEndpoints) {
			appLogger.Fatal("Failed to start prober", zap.Error(err))
		}
		appLogger.Warn("Prober disabled", zap.Error(err))
	}
	defer prober.Stop()

	// Handlers
	monitorHandler := httpDelivery.NewMonitorHandler(errorStore, bridge, prober, appLogger)

	// --- HTTP Router & Server ---
	appLogger.Info("Setting up HTTP router...")
	r := router.New()
	httpDelivery.RegisterRoutes(r, monitorHandler, registry, appLogger)

	server := &fasthttp.Server{
		Handler: httpDelivery.LoggingMiddleware(r.Handler, appLogger),
		Name:    cfg.App.Name,
	}

	serverAddr := ":" + cfg.Server.Port
	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", serverAddr))
		serverErr <- server.ListenAndServe(serverAddr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			appLogger.Error("HTTP server failed", zap.Error(err))
		}
		stop()
	case <-rootCtx.Done():
		appLogger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	monitors.Wait()
	appLogger.Info("Shutdown complete")
}
