package api_test

import (
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"medikon.dev/scan-pipeline/internal/api"
)

var _ = Describe("API Server", func() {
	var (
		logger *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	Describe("NewServer", func() {
		Context("with valid configuration", func() {
			It("should create a server", func() {
				config := &api.ServerConfig{
					Logger:   logger,
					HTTPPort: 8080,
					DBHost:   "localhost",
					DBPort:   5432,
					DBUser:   "scans",
					DBName:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).NotTo(HaveOccurred())
				Expect(server).NotTo(BeNil())
			})
		})

		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				server, err := api.NewServer(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(server).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				config := &api.ServerConfig{
					HTTPPort: 8080,
					DBHost:   "localhost",
					DBPort:   5432,
					DBUser:   "scans",
					DBName:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(server).To(BeNil())
			})

			It("should return error when HTTP port is not positive", func() {
				config := &api.ServerConfig{
					Logger: logger,
					DBHost: "localhost",
					DBPort: 5432,
					DBUser: "scans",
					DBName: "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("HTTP port"))
				Expect(server).To(BeNil())
			})

			It("should return error when database host is empty", func() {
				config := &api.ServerConfig{
					Logger:   logger,
					HTTPPort: 8080,
					DBPort:   5432,
					DBUser:   "scans",
					DBName:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database host"))
				Expect(server).To(BeNil())
			})

			It("should return error when database port is not positive", func() {
				config := &api.ServerConfig{
					Logger:   logger,
					HTTPPort: 8080,
					DBHost:   "localhost",
					DBUser:   "scans",
					DBName:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database port"))
				Expect(server).To(BeNil())
			})

			It("should return error when database user is empty", func() {
				config := &api.ServerConfig{
					Logger:   logger,
					HTTPPort: 8080,
					DBHost:   "localhost",
					DBPort:   5432,
					DBName:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database user"))
				Expect(server).To(BeNil())
			})

			It("should return error when database name is empty", func() {
				config := &api.ServerConfig{
					Logger:   logger,
					HTTPPort: 8080,
					DBHost:   "localhost",
					DBPort:   5432,
					DBUser:   "scans",
				}

				server, err := api.NewServer(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database name"))
				Expect(server).To(BeNil())
			})
		})
	})
})
