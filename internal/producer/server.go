package producer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medikon.dev/scan-pipeline/pkg/metrics"
	"medikon.dev/scan-pipeline/pkg/mq"
)

// ServerConfig holds the configuration for the producer server.
type ServerConfig struct {
	// Logger is the structured logger
	Logger *slog.Logger
	// RabbitMQURL is the connection string for RabbitMQ
	RabbitMQURL string
	// QueueName is the name of the queue to publish scan elements to
	QueueName string
	// Interval is the time between scan generation
	Interval time.Duration
	// ProducerCount is the number of concurrent producers
	ProducerCount int
	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.GeneratorMetrics
	// MQMetrics is the optional Prometheus metrics collector for MQ operations
	MQMetrics *metrics.MQMetrics
}

// Server manages multiple producer instances, each publishing scan
// elements for its own simulated device fleet.
type Server struct {
	logger    *slog.Logger
	config    *ServerConfig
	producers []*Producer
	clients   []*mq.Client
	wg        sync.WaitGroup
	metrics   *metrics.GeneratorMetrics
}

var (
	errInvalidProducerCount = errors.New("producer count must be greater than 0")
	errInvalidInterval      = errors.New("interval must be greater than 0")
	errLoggerRequired       = errors.New("logger is required")
)

// NewServer creates a new producer server with the given configuration.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.ProducerCount <= 0 {
		return nil, errInvalidProducerCount
	}

	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}

	if cfg.Logger == nil {
		return nil, errLoggerRequired
	}

	s := &Server{
		config:    cfg,
		producers: make([]*Producer, 0, cfg.ProducerCount),
		clients:   make([]*mq.Client, 0, cfg.ProducerCount),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}

	// Create producer instances with their own MQ clients
	for i := 0; i < cfg.ProducerCount; i++ {
		client := mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger.With(
			slog.String("component", "mq-client"),
			slog.Int("producer_id", i),
		))

		// Enable MQ metrics if configured
		if cfg.MQMetrics != nil {
			client.SetMetrics(cfg.MQMetrics)
		}

		producer := NewProducer(client)

		// Enable producer metrics if configured
		if cfg.Metrics != nil {
			producer.SetMetrics(cfg.Metrics)
		}

		s.clients = append(s.clients, client)
		s.producers = append(s.producers, producer)

		s.logger.Info("created producer instance",
			"producer_id", i,
			"queue", cfg.QueueName,
			"device_count", len(producer.Devices),
		)
	}

	return s, nil
}

// Run starts all producers and blocks until shutdown signal is received.
func (s *Server) Run(ctx context.Context) error {
	// Create context that can be canceled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start all producers
	for i, producer := range s.producers {
		s.wg.Add(1)
		go s.runProducer(ctx, i, producer)
	}

	s.logger.Info("producer server started",
		"producer_count", len(s.producers),
		"interval", s.config.Interval,
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled, shutting down")
	}

	// Wait for all producers to finish
	s.logger.Info("waiting for producers to shut down...")
	s.wg.Wait()

	// Close all MQ clients
	s.logger.Info("closing MQ clients...")
	s.closeClients()

	s.logger.Info("producer server stopped")
	return nil
}

// runProducer runs a single producer instance, publishing scan elements
// at the configured interval.
func (s *Server) runProducer(ctx context.Context, id int, producer *Producer) {
	defer s.wg.Done()

	// Track active producer
	if s.metrics != nil {
		s.metrics.ActiveGenerators.Inc()
		defer s.metrics.ActiveGenerators.Dec()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	producerLogger := s.logger.With(slog.Int("producer_id", id))
	producerLogger.Info("producer started")

	for {
		select {
		case <-ctx.Done():
			producerLogger.Info("producer shutting down")
			return

		case <-ticker.C:
			if err := producer.RandomScan(ctx); err != nil {
				producerLogger.Error("failed to publish scan element",
					"error", err,
				)
				// Continue on error - don't stop the producer
				continue
			}

			producerLogger.Debug("scan element generated and sent")
		}
	}
}

// closeClients closes all MQ clients gracefully.
func (s *Server) closeClients() {
	var wg sync.WaitGroup

	for i, client := range s.clients {
		wg.Add(1)
		go func(id int, c *mq.Client) {
			defer wg.Done()

			if err := c.Close(); err != nil {
				s.logger.Error("failed to close MQ client",
					"producer_id", id,
					"error", err,
				)
				return
			}

			s.logger.Info("MQ client closed", "producer_id", id)
		}(i, client)
	}

	wg.Wait()
}

// Shutdown initiates a graceful shutdown of the server.
// This is an alternative to sending OS signals.
func (s *Server) Shutdown() error {
	s.logger.Info("shutdown requested")

	// Close all MQ clients
	s.closeClients()

	return nil
}
