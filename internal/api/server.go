// Package api serves the REST interface for devices, processing
// results and synchronous scan ingestion.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/internal/store"
	"medikon.dev/scan-pipeline/pkg/metrics"
)

// DeviceStore is the device persistence the handlers depend on.
type DeviceStore interface {
	Create(ctx context.Context, name string) (*store.Device, error)
	Get(ctx context.Context, id int32) (*store.Device, error)
	List(ctx context.Context) ([]store.Device, error)
	FindOrCreate(ctx context.Context, name string) (*store.Device, bool, error)
	Rename(ctx context.Context, id int32, name string) (*store.Device, error)
	Delete(ctx context.Context, id int32) error
}

// ResultStore is the result persistence the handlers depend on.
type ResultStore interface {
	Create(ctx context.Context, result *store.ProcessingResult) error
	Get(ctx context.Context, id int32) (*store.ProcessingResult, error)
	List(ctx context.Context) ([]store.ProcessingResult, error)
	ListByDevice(ctx context.Context, deviceID int32) ([]store.ProcessingResult, error)
	Delete(ctx context.Context, id int32) error
}

// Server represents the API server that manages the database and the
// HTTP interface.
type Server struct {
	logger     *slog.Logger
	db         *gorm.DB
	httpServer *http.Server
	devices    DeviceStore
	results    ResultStore
	processor  *ingest.Processor
	config     *ServerConfig
	metrics    *metrics.APIMetrics
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// HTTP server configuration
	HTTPPort int

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPort     int

	// CORSOrigins lists the allowed browser origins. Empty means all
	// origins are allowed.
	CORSOrigins []string

	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.APIMetrics
	// IngestMetrics is the optional collector for the ingest pipeline
	IngestMetrics *metrics.IngestMetrics
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	return &Server{
		logger:  cfg.Logger,
		config:  cfg,
		metrics: cfg.Metrics,
	}, nil
}

// Run starts the API server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting api server")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Initialize database
	dbCfg := &store.Config{
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
		Logger:   s.logger,
	}

	db, err := store.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	s.logger.Info("database initialized successfully")

	if err := s.initPipeline(); err != nil {
		return err
	}

	// Create HTTP router
	router := s.setupRouter()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	// Start HTTP server in goroutine
	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("api server started successfully")

	// Wait for shutdown signal or HTTP error
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	// Shutdown
	return s.Shutdown()
}

// initPipeline wires the repositories and the ingest processor onto
// the open database connection.
func (s *Server) initPipeline() error {
	s.devices = store.NewDeviceRepo(s.db)
	s.results = store.NewResultRepo(s.db)

	processor, err := ingest.NewProcessor(&ingest.Config{
		Logger:  s.logger,
		Devices: s.devices,
		Results: s.results,
		Source:  "api",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ingest processor: %w", err)
	}
	if s.config.IngestMetrics != nil {
		processor.SetMetrics(s.config.IngestMetrics)
	}
	s.processor = processor

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down api server")

	var shutdownErr error

	// Shutdown HTTP server
	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	// Close database
	if s.db != nil {
		s.logger.Info("closing database connection")
		if err := store.CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			if shutdownErr != nil {
				shutdownErr = fmt.Errorf("%w; database close error: %w", shutdownErr, err)
			} else {
				shutdownErr = fmt.Errorf("database close error: %w", err)
			}
		}
	}

	if shutdownErr != nil {
		s.logger.Error("api server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("api server shutdown completed successfully")
	return nil
}
