package worker_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"medikon.dev/scan-pipeline/internal/worker"
)

var _ = Describe("Worker Server", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	validConfig := func() *worker.ServerConfig {
		return &worker.ServerConfig{
			Logger:      logger,
			DBHost:      "localhost",
			DBPort:      5432,
			DBUser:      "test",
			DBPassword:  "password",
			DBName:      "scans",
			DBSSLMode:   "disable",
			RabbitMQURL: "amqp://localhost:5672",
			QueueName:   "scan-data",
			HTTPPort:    8081,
		}
	}

	Describe("NewServer", func() {
		Context("with valid configuration", func() {
			It("should create a server", func() {
				server, err := worker.NewServer(validConfig())
				Expect(err).NotTo(HaveOccurred())
				Expect(server).NotTo(BeNil())
			})

			It("should create a server with empty password", func() {
				config := validConfig()
				config.DBPassword = ""

				server, err := worker.NewServer(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(server).NotTo(BeNil())
			})
		})

		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				server, err := worker.NewServer(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(server).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				config := validConfig()
				config.Logger = nil

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(server).To(BeNil())
			})

			It("should return error when rabbitmq URL is empty", func() {
				config := validConfig()
				config.RabbitMQURL = ""

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("rabbitmq URL"))
				Expect(server).To(BeNil())
			})

			It("should return error when queue name is empty", func() {
				config := validConfig()
				config.QueueName = ""

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("queue name"))
				Expect(server).To(BeNil())
			})

			It("should return error when database host is empty", func() {
				config := validConfig()
				config.DBHost = ""

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database host"))
				Expect(server).To(BeNil())
			})

			It("should return error when database port is invalid", func() {
				config := validConfig()
				config.DBPort = 0

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database port"))
				Expect(server).To(BeNil())
			})

			It("should return error when HTTP port is invalid", func() {
				config := validConfig()
				config.HTTPPort = -1

				server, err := worker.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("HTTP port"))
				Expect(server).To(BeNil())
			})
		})
	})
})
