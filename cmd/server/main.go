package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/starline/queue-callback/internal/agi"
	"github.com/starline/queue-callback/internal/ami"
	"github.com/starline/queue-callback/internal/api"
	"github.com/starline/queue-callback/internal/config"
	"github.com/starline/queue-callback/internal/db"
	"github.com/starline/queue-callback/internal/metrics"
	"github.com/starline/queue-callback/internal/ratelimiter"
	"github.com/starline/queue-callback/internal/repository"
	"github.com/starline/queue-callback/internal/service"
	"github.com/starline/queue-callback/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.Queues) == 0 {
		logger.Warn("no monitored queues configured; events and callbacks are inert")
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewPgQueueRepository(pool)

	onApplied, onFailed := m.EventHooks()
	stateSvc := service.NewQueueStateService(repo, cfg.Queues, logger, service.EventHooks{
		OnApplied: onApplied,
		OnFailed:  onFailed,
	})
	cmdSvc := service.NewCallbackCommandService(repo, logger, m.OnRejected())

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	// ---- telephony manager ----
	mgr := ami.NewClient(cfg.AMIAddr, cfg.AMIUsername, cfg.AMISecret, logger)
	mgr.OnConnect = func(connCtx context.Context) {
		// Every (re)connect rebuilds queue state from a full dump so stale
		// rows from the downtime window cannot linger.
		dumpCtx, cancel := context.WithTimeout(connCtx, 30*time.Second)
		defer cancel()
		dump, err := mgr.QueueStatus(dumpCtx)
		if err != nil {
			logger.Error("queue status dump failed", zap.Error(err))
			return
		}
		if err := stateSvc.Reconcile(dumpCtx, dump); err != nil {
			logger.Error("queue reconciliation failed", zap.Error(err))
		}
	}
	go mgr.Run(workerCtx)

	// Event pump: one goroutine applies events in arrival order, which
	// preserves the manager's per-uid emission order.
	go func() {
		for ev := range mgr.Events() {
			stateSvc.HandleEvent(workerCtx, ev)
		}
	}()

	// ---- call-scripting commands ----
	agiServer := agi.NewServer(logger)
	agiServer.Register("ToggleCallback", cmdSvc.ToggleCallback)
	agiServer.Register("RemoveCallback", cmdSvc.RemoveCallback)

	agiListener, err := net.Listen("tcp", cfg.AGIAddr)
	if err != nil {
		logger.Fatal("failed to listen for agi", zap.String("addr", cfg.AGIAddr), zap.Error(err))
	}
	go func() {
		if err := agiServer.Serve(workerCtx, agiListener); err != nil {
			logger.Error("agi server error", zap.Error(err))
		}
	}()

	// ---- callback scheduler ----
	limiter := ratelimiter.New(cfg.OriginateRate)
	onOriginated, onExhausted := m.SchedulerHooks()
	scheduler := worker.NewCallbackScheduler(
		repo, mgr, cfg.Queues,
		worker.Routing{
			Trunk:    cfg.CallbackTrunk,
			Context:  cfg.CallbackContext,
			Exten:    cfg.CallbackExten,
			Priority: cfg.CallbackPriority,
			CallerID: cfg.CallbackCallerID,
			Timeout:  cfg.OriginateTimeout,
		},
		cfg.CallbackLimit, cfg.SchedulerInterval, limiter, logger,
		worker.SchedulerHooks{
			OnOriginated: onOriginated,
			OnExhausted:  onExhausted,
		},
	)
	go scheduler.Run(workerCtx)

	// ---- ops HTTP server ----
	router := api.NewRouter(repo, mgr.Live, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Stop the scheduler, manager connection, and agi listener. Datastore
	// writes already dispatched by an in-flight tick complete normally.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
