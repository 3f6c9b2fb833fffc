package worker

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

// Server represents the worker server that manages the database, the
// scan queue consumer and the health endpoint.
type Server struct {
	logger     *slog.Logger
	db         *gorm.DB
	consumer   *Consumer
	httpServer *http.Server
	config     *ServerConfig
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPort     int

	// RabbitMQ configuration
	RabbitMQURL string
	QueueName   string

	// HTTPPort serves /healthz and /metrics.
	HTTPPort int

	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.WorkerMetrics
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

	if cfg.RabbitMQURL == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
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

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the worker server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting worker server")

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

	// Initialize ingest pipeline
	processor, err := ingest.NewProcessor(&ingest.Config{
		Logger:  s.logger,
		Devices: store.NewDeviceRepo(s.db),
		Results: store.NewResultRepo(s.db),
		Source:  "queue",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ingest processor: %w", err)
	}
	if s.config.IngestMetrics != nil {
		processor.SetMetrics(s.config.IngestMetrics)
	}

	// Initialize consumer
	consumer, err := NewConsumer(&ConsumerConfig{
		Logger:      s.logger,
		Processor:   processor,
		RabbitMQURL: s.config.RabbitMQURL,
		QueueName:   s.config.QueueName,
		Metrics:     s.config.Metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}
	s.consumer = consumer

	// Start consumer
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	// Start health endpoint
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           s.healthHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting health endpoint", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("worker server started successfully")

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

// healthHandler serves the worker's /healthz and /metrics endpoints.
func (s *Server) healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"degraded"}`)
			return
		}
		fmt.Fprintf(w, `{"status":"ok"}`)
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down worker server")

	var shutdownErr error

	// Stop health endpoint
	if s.httpServer != nil {
		s.logger.Info("stopping health endpoint")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	// Stop consumer
	if s.consumer != nil {
		s.logger.Info("stopping consumer")
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop consumer", "error", err)
			if shutdownErr != nil {
				shutdownErr = fmt.Errorf("%w; consumer shutdown error: %w", shutdownErr, err)
			} else {
				shutdownErr = fmt.Errorf("consumer shutdown error: %w", err)
			}
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
		s.logger.Error("worker server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("worker server shutdown completed successfully")
	return nil
}
