package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/internal/report"
	"medikon.dev/scan-pipeline/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a per-device summary of stored results",
	Long: `Generate a report that:
- Reads every device and its processing results
- Computes mean and standard deviation of the per-run averages
- Writes a text report to a file, or stdout when no output is given`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Report-specific flags
	reportCmd.Flags().String("output", "", "report file path (default stdout)")
	reportCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	reportCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	reportCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	reportCmd.Flags().String("db-password", "", "PostgreSQL password")
	reportCmd.Flags().String("db-name", "scans", "PostgreSQL database name")
	reportCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")

	// Bind flags to viper
	_ = viper.BindPFlag("report.output", reportCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("report.db.host", reportCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("report.db.port", reportCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("report.db.user", reportCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("report.db.password", reportCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("report.db.name", reportCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("report.db.sslmode", reportCmd.Flags().Lookup("db-sslmode"))
}

func runReport(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("building report")

	db, err := store.NewDB(&store.Config{
		Host:     viper.GetString("report.db.host"),
		Port:     viper.GetInt("report.db.port"),
		User:     viper.GetString("report.db.user"),
		Password: viper.GetString("report.db.password"),
		DBName:   viper.GetString("report.db.name"),
		SSLMode:  viper.GetString("report.db.sslmode"),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return err
	}
	defer func() {
		if closeErr := store.CloseDB(db, logger); closeErr != nil {
			logger.Error("failed to close database", "error", closeErr)
		}
	}()

	generator, err := report.New(&report.Config{
		Logger:  logger,
		Devices: store.NewDeviceRepo(db),
		Results: store.NewResultRepo(db),
	})
	if err != nil {
		logger.Error("failed to create report generator", "error", err)
		return err
	}

	built, err := generator.Build(context.Background())
	if err != nil {
		logger.Error("failed to build report", "error", err)
		return err
	}

	output := viper.GetString("report.output")
	if output == "" {
		return built.Write(os.Stdout)
	}

	if err := built.WriteFile(output); err != nil {
		logger.Error("failed to write report", "error", err)
		return err
	}

	logger.Info("report written", "path", output)
	return nil
}
