package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/api/ws"
	"chatrelay/config"
	"chatrelay/internal/guard"
	"chatrelay/internal/nats"
	"chatrelay/internal/presence"
	"chatrelay/internal/registry"
	"chatrelay/internal/store"
	"chatrelay/pkg/logger"
	"chatrelay/service"
)

// App holds every runtime dependency of the relay, wired once at startup.
type App struct {
	cfg         config.Config
	logger      logger.Logger
	natsClient  *nats.Client
	tracker     *presence.RedisTracker
	mongoStore  *store.MongoStore
	chatService service.ChatService
	httpServer  *http.Server
	rootCtx     context.Context
	cancel      context.CancelFunc
}

// NewApp initializes and connects all application dependencies. Any backend
// that cannot be reached is a startup fault: the process must not accept
// connections.
func NewApp(cfg config.Config) (*App, error) {
	baseLogger := logger.NewLogger(cfg.LogLevel, cfg.LogFile)
	rootCtx := logger.NewContext(context.Background(), baseLogger)
	rootCtx, rootCancel := context.WithCancel(rootCtx)

	log := logger.FromContext(rootCtx).WithModule("app")
	log.Infof("Initializing application components...")

	natsClient, err := nats.NewClient(cfg.NATSURL)
	if err != nil {
		rootCancel()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	tracker, err := presence.NewRedisTracker(rootCtx, cfg.RedisURL)
	if err != nil {
		rootCancel()
		natsClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	mongoStore, err := store.NewMongoStore(rootCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		rootCancel()
		natsClient.Close()
		_ = tracker.Close()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	chatService := service.NewChatService(
		guard.New(mongoStore),
		mongoStore,
		registry.New(natsClient),
		tracker,
		baseLogger.WithModule("chat"),
	)

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: ws.SetupWebSocketRoutes(ws.WSConfig{
			ChatService: chatService,
			RootCtx:     rootCtx,
		}),
	}

	app := &App{
		cfg:         cfg,
		logger:      log,
		natsClient:  natsClient,
		tracker:     tracker,
		mongoStore:  mongoStore,
		chatService: chatService,
		httpServer:  httpServer,
		rootCtx:     rootCtx,
		cancel:      rootCancel,
	}

	log.Infof("Application initialized successfully")
	return app, nil
}

// Start runs the application and handles graceful shutdown on signal.
func (a *App) Start() error {
	log := a.logger.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
	})

	log.Infof("Starting application server")

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Warnf("Received shutdown signal %s", sig)

	return a.Stop()
}

// Stop gracefully shuts down the server and closes all connections.
func (a *App) Stop() error {
	a.logger.Infof("Initiating graceful shutdown")

	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Errorf("HTTP server shutdown error: %v", err)
	}

	a.logger.Infof("Closing NATS connection")
	a.natsClient.Close()

	a.logger.Infof("Closing Redis connection")
	if err := a.tracker.Close(); err != nil {
		a.logger.Errorf("Redis close error: %v", err)
	}

	a.logger.Infof("Closing MongoDB connection")
	if err := a.mongoStore.Close(ctx); err != nil {
		a.logger.Errorf("MongoDB close error: %v", err)
	}

	a.logger.Infof("Shutdown completed successfully")
	return nil
}
