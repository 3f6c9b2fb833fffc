// Package mq provides the RabbitMQ transport for scan ingestion, with
// automatic reconnection and confirmed publishing.
package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"medikon.dev/scan-pipeline/pkg/metrics"
)

// Client is a RabbitMQ client that handles connection management,
// automatic reconnection, and provides methods for publishing and
// consuming scan messages.
type Client struct {
	mu              sync.Mutex
	log             *slog.Logger
	connection      *amqp.Connection
	channel         *amqp.Channel
	done            chan bool
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	notifyConfirm   chan amqp.Confirmation
	queueName       string
	isReady         bool
	metrics         *metrics.MQMetrics // Optional metrics
}

const (
	// When reconnecting to the server after connection failure.
	reconnectDelay = 5 * time.Second

	// When setting up the channel after a channel exception.
	reInitDelay = 2 * time.Second

	// Initial backoff delay for Push retries.
	initialBackoff = 100 * time.Millisecond

	// Maximum backoff delay for Push retries.
	maxBackoff = 10 * time.Second

	// Backoff multiplier for exponential backoff.
	backoffMultiplier = 2

	// Maximum number of publish attempts before giving up.
	maxPushAttempts = 5
)

var (
	errNotConnected     = errors.New("not connected to a server")
	errAlreadyClosed    = errors.New("already closed: not connected to the server")
	errShutdown         = errors.New("client is shutting down")
	errRetriesExhausted = errors.New("publish retries exhausted")
)

// New creates a new client bound to the given queue, and automatically
// attempts to connect to the server in the background.
func New(queueName, addr string, l *slog.Logger) *Client {
	client := Client{
		log:       l,
		queueName: queueName,
		done:      make(chan bool),
	}
	go client.handleReconnect(addr)
	return &client
}

// SetMetrics sets the metrics collector for this client.
// This should be called before the client starts processing messages.
func (client *Client) SetMetrics(m *metrics.MQMetrics) {
	client.metrics = m
}

// handleReconnect will wait for a connection error on
// notifyConnClose, and then continuously attempt to reconnect.
func (client *Client) handleReconnect(addr string) {
	for {
		client.mu.Lock()
		client.isReady = false
		client.mu.Unlock()

		client.log.Info("attempting to connect", "queue", client.queueName)

		if client.metrics != nil {
			client.metrics.ReconnectAttempts.Inc()
		}

		conn, err := client.connect(addr)
		if err != nil {
			client.log.Error("failed to connect, retrying", "error", err)

			select {
			case <-client.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if done := client.handleReInit(conn); done {
			break
		}
	}
}

// connect will create a new AMQP connection.
func (client *Client) connect(addr string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		if client.metrics != nil {
			client.metrics.ConnectionStatus.Set(0)
		}
		return nil, err
	}

	client.changeConnection(conn)
	client.log.Info("connected", "queue", client.queueName)

	if client.metrics != nil {
		client.metrics.ConnectionStatus.Set(1)
	}

	return conn, nil
}

// handleReInit will wait for a channel error
// and then continuously attempt to re-initialize both channels.
func (client *Client) handleReInit(conn *amqp.Connection) bool {
	for {
		client.mu.Lock()
		client.isReady = false
		client.mu.Unlock()

		err := client.init(conn)
		if err != nil {
			client.log.Error("failed to initialize channel, retrying", "error", err)

			select {
			case <-client.done:
				return true
			case <-client.notifyConnClose:
				client.log.Info("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-client.done:
			return true
		case <-client.notifyConnClose:
			client.log.Info("connection closed, reconnecting")
			return false
		case <-client.notifyChanClose:
			client.log.Info("channel closed, re-running init")
		}
	}
}

// init will initialize the channel and declare the queue. Scan messages
// must survive a broker restart, so the queue is durable.
func (client *Client) init(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	err = ch.Confirm(false)
	if err != nil {
		return err
	}
	_, err = ch.QueueDeclare(
		client.queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		return err
	}

	client.changeChannel(ch)
	client.mu.Lock()
	client.isReady = true
	client.mu.Unlock()
	client.log.Info("client init done", "queue", client.queueName)

	return nil
}

// changeConnection takes a new connection to the queue,
// and updates the close listener to reflect this.
func (client *Client) changeConnection(connection *amqp.Connection) {
	client.connection = connection
	client.notifyConnClose = make(chan *amqp.Error, 1)
	client.connection.NotifyClose(client.notifyConnClose)
}

// changeChannel takes a new channel to the queue,
// and updates the channel listeners to reflect this.
func (client *Client) changeChannel(channel *amqp.Channel) {
	client.channel = channel
	client.notifyChanClose = make(chan *amqp.Error, 1)
	client.notifyConfirm = make(chan amqp.Confirmation, 1)
	client.channel.NotifyClose(client.notifyChanClose)
	client.channel.NotifyPublish(client.notifyConfirm)
}

// Push publishes data to the queue and waits for a confirmation.
// It blocks until the server confirms delivery. While the client is
// disconnected it retries with exponential backoff, giving the
// background reconnect loop time to recover; after maxPushAttempts
// failed attempts it gives up. The context is used for cancellation
// and timeout.
func (client *Client) Push(ctx context.Context, data []byte) error {
	var timer *prometheus.Timer
	if client.metrics != nil {
		timer = prometheus.NewTimer(client.metrics.PushDuration.WithLabelValues(client.queueName))
		defer timer.ObserveDuration()
	}

	backoff := initialBackoff
	attempts := 0

	for {
		if attempts >= maxPushAttempts {
			client.log.Error("publish retries exhausted",
				"attempts", attempts,
				"max_attempts", maxPushAttempts)

			if client.metrics != nil {
				client.metrics.PushFailures.WithLabelValues(client.queueName, "retries_exhausted").Inc()
			}

			return errRetriesExhausted
		}

		client.mu.Lock()
		isReady := client.isReady
		client.mu.Unlock()

		if !isReady {
			client.log.Info("not connected, waiting for reconnection",
				"backoff", backoff,
				"attempts", attempts)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-client.done:
				return errShutdown
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
				attempts++
				continue
			}
		}

		err := client.UnsafePush(ctx, data)
		if err != nil {
			client.log.Error("push failed, retrying with backoff",
				"error", err,
				"backoff", backoff,
				"attempts", attempts)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-client.done:
				return errShutdown
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
				attempts++
				continue
			}
		}

		select {
		case <-ctx.Done():
			if client.metrics != nil {
				client.metrics.PushFailures.WithLabelValues(client.queueName, "context_canceled").Inc()
			}
			return ctx.Err()
		case confirm := <-client.notifyConfirm:
			if confirm.Ack {
				if client.metrics != nil {
					client.metrics.MessagesPushed.WithLabelValues(client.queueName).Inc()
				}

				if attempts > 0 {
					client.log.Info("push confirmed after retries",
						"delivery_tag", confirm.DeliveryTag,
						"attempts", attempts)
				} else {
					client.log.Debug("push confirmed", "delivery_tag", confirm.DeliveryTag)
				}
				return nil
			}
			client.log.Warn("push not acknowledged, retrying",
				"delivery_tag", confirm.DeliveryTag,
				"backoff", backoff)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-client.done:
				return errShutdown
			case <-time.After(backoff):
				backoff = nextBackoff(backoff)
				attempts++
				continue
			}
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

// UnsafePush publishes to the queue without waiting for confirmation.
// It returns an error if the client is not connected, but provides no
// guarantee that the server received the message. Payloads are JSON
// and are published persistent to match the durable queue.
func (client *Client) UnsafePush(ctx context.Context, data []byte) error {
	client.mu.Lock()
	if !client.isReady {
		client.mu.Unlock()
		return errNotConnected
	}
	client.mu.Unlock()

	return client.channel.PublishWithContext(
		ctx,
		"",               // Exchange
		client.queueName, // Routing key
		false,            // Mandatory
		false,            // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	)
}

// Consume will continuously put queue items on the channel.
// It is required to call delivery.Ack when it has been
// successfully processed, or delivery.Nack when it fails.
// Ignoring this will cause data to build up on the server.
// Prefetch is 1 so results are stored one scan at a time.
func (client *Client) Consume() (<-chan amqp.Delivery, error) {
	client.mu.Lock()
	if !client.isReady {
		client.mu.Unlock()
		return nil, errNotConnected
	}
	client.mu.Unlock()

	if err := client.channel.Qos(
		1,     // prefetchCount
		0,     // prefetchSize
		false, // global
	); err != nil {
		return nil, err
	}

	return client.channel.Consume(
		client.queueName,
		"",    // Consumer
		false, // Auto-Ack
		false, // Exclusive
		false, // No-local
		false, // No-Wait
		nil,   // Args
	)
}

// Close will cleanly shut down the channel and connection.
func (client *Client) Close() error {
	client.mu.Lock()
	// isReady is read and written below, so the lock is held until
	// shutdown is finished
	defer client.mu.Unlock()

	if !client.isReady {
		return errAlreadyClosed
	}
	close(client.done)
	err := client.channel.Close()
	if err != nil {
		return err
	}
	err = client.connection.Close()
	if err != nil {
		return err
	}

	client.isReady = false

	if client.metrics != nil {
		client.metrics.ConnectionStatus.Set(0)
	}

	return nil
}
