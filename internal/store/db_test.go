package store_test

import (
	"context"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"medikon.dev/scan-pipeline/internal/store"
)

var _ = Describe("Database", func() {
	var (
		logger *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	})

	Describe("NewDB", func() {
		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				db, err := store.NewDB(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(db).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				config := &store.Config{
					Logger:   nil,
					Host:     "localhost",
					Port:     5432,
					User:     "test",
					Password: "password",
					DBName:   "testdb",
					SSLMode:  "disable",
				}

				db, err := store.NewDB(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(db).To(BeNil())
			})
		})

		Context("connection validation", func() {
			It("should fail with invalid host", func() {
				config := &store.Config{
					Logger:   logger,
					Host:     "invalid-host-that-does-not-exist",
					Port:     5432,
					User:     "test",
					Password: "password",
					DBName:   "testdb",
					SSLMode:  "disable",
				}

				db, err := store.NewDB(config)
				Expect(err).To(HaveOccurred())
				Expect(db).To(BeNil())
			})
		})
	})

	Describe("CloseDB", func() {
		It("should handle nil database gracefully", func() {
			err := store.CloseDB(nil, logger)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Repositories", func() {
		Context("input validation before touching the database", func() {
			It("should reject creating a device with an empty name", func() {
				repo := store.NewDeviceRepo(nil)

				device, err := repo.Create(context.Background(), "")
				Expect(err).To(MatchError(store.ErrDeviceNameRequired))
				Expect(device).To(BeNil())
			})

			It("should reject creating a device with a blank name", func() {
				repo := store.NewDeviceRepo(nil)

				device, err := repo.Create(context.Background(), "   ")
				Expect(err).To(MatchError(store.ErrDeviceNameRequired))
				Expect(device).To(BeNil())
			})

			It("should reject renaming a device to an empty name", func() {
				repo := store.NewDeviceRepo(nil)

				device, err := repo.Rename(context.Background(), 1, "")
				Expect(err).To(MatchError(store.ErrDeviceNameRequired))
				Expect(device).To(BeNil())
			})

			It("should reject find-or-create with an empty name", func() {
				repo := store.NewDeviceRepo(nil)

				device, created, err := repo.FindOrCreate(context.Background(), "")
				Expect(err).To(MatchError(store.ErrDeviceNameRequired))
				Expect(created).To(BeFalse())
				Expect(device).To(BeNil())
			})
		})
	})
})
