package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	amqp "github.com/rabbitmq/amqp091-go"

	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/internal/store"
	"medikon.dev/scan-pipeline/internal/worker"
	"medikon.dev/scan-pipeline/pkg/mq/mock"
	"medikon.dev/scan-pipeline/pkg/scan"
)

// fakeDeviceStore keeps devices in memory, keyed by name.
type fakeDeviceStore struct {
	devices map[string]*store.Device
	nextID  int32
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{devices: map[string]*store.Device{}}
}

func (f *fakeDeviceStore) FindOrCreate(_ context.Context, name string) (*store.Device, bool, error) {
	if device, ok := f.devices[name]; ok {
		return device, false, nil
	}
	f.nextID++
	device := &store.Device{ID: f.nextID, DeviceName: name}
	f.devices[name] = device
	return device, true, nil
}

// fakeResultStore collects stored results and can be forced to fail.
type fakeResultStore struct {
	results []*store.ProcessingResult
	nextID  int32
	err     error
}

func (f *fakeResultStore) Create(_ context.Context, result *store.ProcessingResult) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	result.ID = f.nextID
	f.results = append(f.results, result)
	return nil
}

// fakeAcknowledger records acks and nacks for a delivery.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return f.Nack(0, false, requeue)
}

func (f *fakeAcknowledger) wasAcked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acked
}

func (f *fakeAcknowledger) wasNacked() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nacked, f.requeue
}

var _ = Describe("Consumer", func() {
	var (
		logger  *slog.Logger
		devices *fakeDeviceStore
		results *fakeResultStore
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		devices = newFakeDeviceStore()
		results = &fakeResultStore{}
	})

	newProcessor := func() *ingest.Processor {
		processor, err := ingest.NewProcessor(&ingest.Config{
			Logger:  logger,
			Devices: devices,
			Results: results,
			Source:  "queue",
		})
		Expect(err).NotTo(HaveOccurred())
		return processor
	}

	Describe("NewConsumer", func() {
		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				consumer, err := worker.NewConsumer(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(consumer).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				consumer, err := worker.NewConsumer(&worker.ConsumerConfig{
					Processor: newProcessor(),
					MQClient:  mock.NewMockClient(),
					QueueName: "scan-data",
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(consumer).To(BeNil())
			})

			It("should return error when processor is nil", func() {
				consumer, err := worker.NewConsumer(&worker.ConsumerConfig{
					Logger:    logger,
					MQClient:  mock.NewMockClient(),
					QueueName: "scan-data",
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("processor"))
				Expect(consumer).To(BeNil())
			})

			It("should return error when queue name is empty", func() {
				consumer, err := worker.NewConsumer(&worker.ConsumerConfig{
					Logger:    logger,
					Processor: newProcessor(),
					MQClient:  mock.NewMockClient(),
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("queue name"))
				Expect(consumer).To(BeNil())
			})

			It("should return error when neither a client nor a URL is given", func() {
				consumer, err := worker.NewConsumer(&worker.ConsumerConfig{
					Logger:    logger,
					Processor: newProcessor(),
					QueueName: "scan-data",
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("rabbitmq URL"))
				Expect(consumer).To(BeNil())
			})
		})

		Context("with valid configuration", func() {
			It("should create a consumer with an injected client", func() {
				consumer, err := worker.NewConsumer(&worker.ConsumerConfig{
					Logger:    logger,
					Processor: newProcessor(),
					MQClient:  mock.NewMockClient(),
					QueueName: "scan-data",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(consumer).NotTo(BeNil())
			})
		})
	})

	Describe("message handling", func() {
		var (
			mqClient   *mock.MockClient
			deliveries chan amqp.Delivery
			consumer   *worker.Consumer
			cancel     context.CancelFunc
		)

		BeforeEach(func() {
			mqClient = mock.NewMockClient()
			deliveries = make(chan amqp.Delivery, 1)
			mqClient.ConsumeChannel = deliveries

			var err error
			consumer, err = worker.NewConsumer(&worker.ConsumerConfig{
				Logger:    logger,
				Processor: newProcessor(),
				MQClient:  mqClient,
				QueueName: "scan-data",
			})
			Expect(err).NotTo(HaveOccurred())

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			Expect(consumer.Start(ctx)).To(Succeed())
		})

		AfterEach(func() {
			cancel()
			Expect(consumer.Stop()).To(Succeed())
		})

		deliver := func(body []byte) *fakeAcknowledger {
			ack := &fakeAcknowledger{}
			deliveries <- amqp.Delivery{
				Acknowledger: ack,
				Body:         body,
			}
			return ack
		}

		It("should store a valid scan element and ack the message", func() {
			element := scan.Element{
				DeviceName: "MRI-OSLO-1001",
				Data:       []string{"10 20 30", "40 50 60"},
			}
			body, err := json.Marshal(element)
			Expect(err).NotTo(HaveOccurred())

			ack := deliver(body)

			Eventually(ack.wasAcked).Should(BeTrue())
			Expect(results.results).To(HaveLen(1))
			Expect(results.results[0].DataSize).To(Equal(int32(6)))
			Expect(devices.devices).To(HaveKey("MRI-OSLO-1001"))
		})

		It("should ack and drop malformed JSON", func() {
			ack := deliver([]byte("not json"))

			Eventually(ack.wasAcked).Should(BeTrue())
			nacked, _ := ack.wasNacked()
			Expect(nacked).To(BeFalse())
			Expect(results.results).To(BeEmpty())
		})

		It("should ack and drop elements that fail normalization", func() {
			element := scan.Element{
				DeviceName: "CT-BERGEN-2002",
				Data:       []string{"0 0 0"},
			}
			body, err := json.Marshal(element)
			Expect(err).NotTo(HaveOccurred())

			ack := deliver(body)

			Eventually(ack.wasAcked).Should(BeTrue())
			Expect(results.results).To(BeEmpty())
		})

		It("should nack with requeue when the store fails", func() {
			results.err = errors.New("connection refused")

			element := scan.Element{
				DeviceName: "XR-TROMSO-3003",
				Data:       []string{"5 6 7"},
			}
			body, err := json.Marshal(element)
			Expect(err).NotTo(HaveOccurred())

			ack := deliver(body)

			Eventually(func() bool {
				nacked, _ := ack.wasNacked()
				return nacked
			}).Should(BeTrue())
			_, requeue := ack.wasNacked()
			Expect(requeue).To(BeTrue())
			Expect(ack.wasAcked()).To(BeFalse())
		})
	})
})
