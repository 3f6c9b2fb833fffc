// Package worker consumes scan elements from the scan queue and feeds
// them through the ingest pipeline into PostgreSQL.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/pkg/metrics"
	"medikon.dev/scan-pipeline/pkg/mq"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// Consumer consumes scan messages from RabbitMQ and persists their
// processing results via the ingest pipeline.
type Consumer struct {
	logger    *slog.Logger
	processor *ingest.Processor
	mqClient  mq.ClientInterface
	queueName string
	done      chan struct{}
	metrics   *metrics.WorkerMetrics // Optional metrics
}

// ConsumerConfig holds the configuration for the Consumer.
type ConsumerConfig struct {
	Logger    *slog.Logger
	Processor *ingest.Processor

	// MQClient is the queue client to consume from. When nil, a client
	// is created from RabbitMQURL and QueueName.
	MQClient    mq.ClientInterface
	RabbitMQURL string
	QueueName   string

	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.WorkerMetrics
}

// NewConsumer creates a new Consumer instance.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("consumer config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Processor == nil {
		return nil, errors.New("ingest processor cannot be nil")
	}

	if cfg.QueueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	mqClient := cfg.MQClient
	if mqClient == nil {
		if cfg.RabbitMQURL == "" {
			return nil, errors.New("rabbitmq URL cannot be empty")
		}
		mqClient = mq.New(cfg.QueueName, cfg.RabbitMQURL, cfg.Logger)
	}

	return &Consumer{
		logger:    cfg.Logger,
		processor: cfg.Processor,
		mqClient:  mqClient,
		queueName: cfg.QueueName,
		done:      make(chan struct{}),
		metrics:   cfg.Metrics,
	}, nil
}

// Start begins consuming messages from RabbitMQ.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting consumer", "queue", c.queueName)

	// Wait for MQ client to be ready
	time.Sleep(2 * time.Second)

	// Start consuming messages
	deliveries, err := c.mqClient.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer started, waiting for scan messages")

	// Process messages in a goroutine
	go c.processMessages(ctx, deliveries)

	return nil
}

// processMessages processes incoming messages from the deliveries channel.
func (c *Consumer) processMessages(ctx context.Context, deliveries <-chan amqp.Delivery) {
	if c.metrics != nil {
		c.metrics.ActiveConsumers.Inc()
		defer c.metrics.ActiveConsumers.Dec()
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context canceled, stopping message processing")
			close(c.done)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("deliveries channel closed")
				close(c.done)
				return
			}

			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery processes a single scan message. Malformed or invalid
// payloads are acked and dropped so they cannot poison the queue;
// persistence failures are nacked with requeue so the element is
// retried once the database recovers.
func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var timer *prometheus.Timer
	if c.metrics != nil {
		timer = prometheus.NewTimer(c.metrics.HandleDuration.WithLabelValues(c.queueName))
		defer timer.ObserveDuration()
	}

	// Parse the JSON scan element
	var element scan.Element
	if err := json.Unmarshal(delivery.Body, &element); err != nil {
		c.logger.Error("failed to unmarshal scan element",
			"error", err,
		)
		c.reject(delivery, "unmarshal_error")
		return
	}

	c.logger.Debug("received scan element",
		"device_name", element.DeviceName,
		"rows", len(element.Data),
	)

	outcome, err := c.processor.Process(ctx, element)
	if err != nil {
		var invalid *ingest.InvalidElementError
		if errors.As(err, &invalid) {
			c.logger.Error("dropping invalid scan element",
				"device_name", element.DeviceName,
				"error", err,
			)
			c.reject(delivery, "invalid_element")
			return
		}

		c.logger.Error("failed to store scan element",
			"device_name", element.DeviceName,
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.DatabaseErrors.Inc()
			c.metrics.MessagesConsumed.WithLabelValues(c.queueName, "error").Inc()
		}
		// Nack the message so it can be reprocessed
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", "error", nackErr)
		}
		return
	}

	// Acknowledge successful processing
	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack message", "error", err)
		return
	}

	if c.metrics != nil {
		c.metrics.MessagesConsumed.WithLabelValues(c.queueName, "success").Inc()
	}

	c.logger.Debug("scan element stored",
		"device_id", outcome.Device.ID,
		"result_id", outcome.Result.ID,
		"data_size", outcome.Result.DataSize,
	)
}

// reject acks a message that will never process successfully, dropping
// it from the queue.
func (c *Consumer) reject(delivery amqp.Delivery, reason string) {
	if c.metrics != nil {
		c.metrics.ValidationErrors.Inc()
		c.metrics.MessagesRejected.WithLabelValues(c.queueName, reason).Inc()
		c.metrics.MessagesConsumed.WithLabelValues(c.queueName, "error").Inc()
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("failed to ack message", "error", ackErr)
	}
}

// Stop stops the consumer and closes the MQ client.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumer")

	// Close MQ client
	if err := c.mqClient.Close(); err != nil {
		return fmt.Errorf("failed to close mq client: %w", err)
	}

	// Wait for message processing to complete
	<-c.done

	c.logger.Info("consumer stopped")
	return nil
}
