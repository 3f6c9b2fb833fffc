// Package mq provides end-to-end tests for the RabbitMQ client.
package mq

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	clientmq "medikon.dev/scan-pipeline/pkg/mq"
	"medikon.dev/scan-pipeline/pkg/scan"
)

var _ = Describe("MQ Client E2E", func() {
	var (
		client    *clientmq.Client
		queueName string
		ctx       context.Context
	)

	BeforeEach(func() {
		// Generate unique queue name for this test
		queueName = "scan-queue-" + time.Now().Format("20060102-150405.000")
		ctx = context.Background()
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
			client = nil
		}
	})

	Describe("Connection", func() {
		It("should connect to RabbitMQ successfully", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			Expect(client).NotTo(BeNil())

			// Give client time to connect
			time.Sleep(1 * time.Second)
		})

		It("should handle invalid URL gracefully", func() {
			invalidClient := clientmq.New("scan-queue", "amqp://invalid:5672", testLogger)
			Expect(invalidClient).NotTo(BeNil())

			// Should not crash, will keep retrying in background
			time.Sleep(500 * time.Millisecond)

			_ = invalidClient.Close()
		})
	})

	Describe("Publishing", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second) // Wait for connection
		})

		It("should publish a scan element successfully", func() {
			element := scan.Element{
				DeviceName: "MRI-OSLO-1001",
				Data:       []string{"78 83 21", "42 17 99"},
			}
			message, err := json.Marshal(element)
			Expect(err).NotTo(HaveOccurred())

			err = client.Push(ctx, message)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should publish multiple messages successfully", func() {
			for i := 0; i < 3; i++ {
				element := scan.Element{
					DeviceName: "CT-BERGEN-2002",
					Data:       []string{"1 2 3"},
				}
				message, err := json.Marshal(element)
				Expect(err).NotTo(HaveOccurred())

				err = client.Push(ctx, message)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should publish large messages successfully", func() {
			// Create a 1MB message
			largeMessage := make([]byte, 1024*1024)
			for i := range largeMessage {
				largeMessage[i] = byte(i % 256)
			}

			err := client.Push(ctx, largeMessage)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should handle rapid successive publishes", func() {
			for i := 0; i < 10; i++ {
				err := client.Push(ctx, []byte(`{"deviceName":"XR-TROMSO-3003","data":["5 6 7"]}`))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should respect the push context deadline", func() {
			shortCtx, cancel := context.WithTimeout(ctx, time.Nanosecond)
			defer cancel()
			time.Sleep(time.Millisecond)

			err := client.Push(shortCtx, []byte("late message"))
			Expect(err).To(HaveOccurred())
		})

		It("should use UnsafePush without waiting for confirmation", func() {
			err := client.UnsafePush(ctx, []byte(`{"deviceName":"US-DRAMMEN-4004","data":["9"]}`))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Consuming", func() {
		BeforeEach(func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second) // Wait for connection
		})

		It("should consume a published scan element", func() {
			// Start consuming FIRST
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())
			Expect(deliveries).NotTo(BeNil())

			// Wait for consumer to register on server
			time.Sleep(500 * time.Millisecond)

			// THEN publish a message
			element := scan.Element{
				DeviceName: "MRI-OSLO-1001",
				Data:       []string{"10 20 30"},
			}
			message, err := json.Marshal(element)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Push(ctx, message)).To(Succeed())

			// Receive the message and round-trip the element
			select {
			case delivery := <-deliveries:
				var received scan.Element
				Expect(json.Unmarshal(delivery.Body, &received)).To(Succeed())
				Expect(received.DeviceName).To(Equal("MRI-OSLO-1001"))
				Expect(received.Data).To(Equal([]string{"10 20 30"}))
				Expect(delivery.Ack(false)).To(Succeed())
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}
		})

		It("should consume multiple messages in order", func() {
			// Start consuming FIRST
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())

			// Wait for consumer to register on server
			time.Sleep(500 * time.Millisecond)

			// THEN publish multiple messages
			names := []string{"first-device", "second-device", "third-device"}
			for _, name := range names {
				message, err := json.Marshal(scan.Element{
					DeviceName: name,
					Data:       []string{"1"},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(client.Push(ctx, message)).To(Succeed())
			}

			// Receive them back in publish order
			for _, want := range names {
				select {
				case delivery := <-deliveries:
					var received scan.Element
					Expect(json.Unmarshal(delivery.Body, &received)).To(Succeed())
					Expect(received.DeviceName).To(Equal(want))
					Expect(delivery.Ack(false)).To(Succeed())
				case <-time.After(5 * time.Second):
					Fail("Did not receive message within timeout")
				}
			}
		})

		It("should redeliver a nacked message", func() {
			deliveries, err := client.Consume()
			Expect(err).NotTo(HaveOccurred())
			time.Sleep(500 * time.Millisecond)

			Expect(client.Push(ctx, []byte(`{"deviceName":"requeue-device","data":["1"]}`))).To(Succeed())

			select {
			case delivery := <-deliveries:
				Expect(delivery.Nack(false, true)).To(Succeed())
			case <-time.After(5 * time.Second):
				Fail("Did not receive message within timeout")
			}

			// The nacked message comes back
			select {
			case delivery := <-deliveries:
				var received scan.Element
				Expect(json.Unmarshal(delivery.Body, &received)).To(Succeed())
				Expect(received.DeviceName).To(Equal("requeue-device"))
				Expect(delivery.Ack(false)).To(Succeed())
			case <-time.After(5 * time.Second):
				Fail("Nacked message was not redelivered")
			}
		})
	})

	Describe("Close", func() {
		It("should close cleanly and refuse further pushes", func() {
			client = clientmq.New(queueName, rabbitmqURL, testLogger)
			time.Sleep(2 * time.Second)

			Expect(client.Close()).To(Succeed())

			err := client.Push(ctx, []byte("after close"))
			Expect(err).To(HaveOccurred())

			client = nil
		})
	})
})
