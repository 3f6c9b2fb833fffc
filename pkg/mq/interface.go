package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClientInterface defines the interface for message queue operations.
// The producer and worker depend on this interface so tests can swap
// in a mock client.
type ClientInterface interface {
	// Push publishes data to the queue and waits for a confirmation.
	// The context is used for cancellation and timeout.
	Push(ctx context.Context, data []byte) error

	// UnsafePush publishes to the queue without waiting for confirmation.
	// It returns an error if the client is not connected, but provides no
	// guarantee that the server received the message.
	UnsafePush(ctx context.Context, data []byte) error

	// Consume will continuously put queue items on the channel.
	// It is required to call delivery.Ack when it has been successfully
	// processed, or delivery.Nack when it fails.
	Consume() (<-chan amqp.Delivery, error)

	// Close will cleanly shut down the channel and connection.
	Close() error
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)
