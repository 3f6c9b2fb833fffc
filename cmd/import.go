package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/internal/importer"
	"medikon.dev/scan-pipeline/internal/ingest"
	"medikon.dev/scan-pipeline/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import scan batch files into the store",
	Long: `Import scan batch files that:
- Reads every *.json batch file in a directory
- Normalizes each scan element and stores its processing result
- Logs and skips unreadable files, continuing the run`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	// Import-specific flags
	importCmd.Flags().String("dir", "", "directory of scan batch files (required)")
	importCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	importCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	importCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	importCmd.Flags().String("db-password", "", "PostgreSQL password")
	importCmd.Flags().String("db-name", "scans", "PostgreSQL database name")
	importCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")

	// Bind flags to viper
	_ = viper.BindPFlag("import.dir", importCmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("import.db.host", importCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("import.db.port", importCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("import.db.user", importCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("import.db.password", importCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("import.db.name", importCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("import.db.sslmode", importCmd.Flags().Lookup("db-sslmode"))
}

func runImport(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting import run")

	dir := viper.GetString("import.dir")
	if dir == "" {
		return errors.New("import directory is required (--dir)")
	}

	db, err := store.NewDB(&store.Config{
		Host:     viper.GetString("import.db.host"),
		Port:     viper.GetInt("import.db.port"),
		User:     viper.GetString("import.db.user"),
		Password: viper.GetString("import.db.password"),
		DBName:   viper.GetString("import.db.name"),
		SSLMode:  viper.GetString("import.db.sslmode"),
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

	processor, err := ingest.NewProcessor(&ingest.Config{
		Logger:  logger,
		Devices: store.NewDeviceRepo(db),
		Results: store.NewResultRepo(db),
		Source:  "import",
	})
	if err != nil {
		logger.Error("failed to initialize ingest processor", "error", err)
		return err
	}

	imp, err := importer.New(&importer.Config{
		Logger:    logger,
		Processor: processor,
	})
	if err != nil {
		logger.Error("failed to create importer", "error", err)
		return err
	}

	summary, _, err := imp.Run(context.Background(), dir)
	if err != nil {
		logger.Error("import run failed", "error", err)
		return err
	}

	logger.Info("import run finished",
		"files", summary.Files,
		"failed_files", summary.FailedFiles,
		"stored", summary.Stored,
		"skipped", summary.Skipped,
		"devices_created", summary.DevicesCreated,
	)
	return nil
}
