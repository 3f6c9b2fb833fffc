package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/internal/api"
	"medikon.dev/scan-pipeline/pkg/metrics"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the REST API server",
	Long: `Run the REST API server that:
- Serves device and processing result endpoints
- Ingests scan batches synchronously
- Persists data to PostgreSQL
- Exposes /healthz and Prometheus /metrics`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	// API-specific flags
	apiCmd.Flags().Int("http-port", 8080, "HTTP server port")
	apiCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	apiCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	apiCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	apiCmd.Flags().String("db-password", "", "PostgreSQL password")
	apiCmd.Flags().String("db-name", "scans", "PostgreSQL database name")
	apiCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	apiCmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (empty allows all)")

	// Bind flags to viper
	_ = viper.BindPFlag("api.http.port", apiCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("api.db.host", apiCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("api.db.port", apiCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("api.db.user", apiCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("api.db.password", apiCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("api.db.name", apiCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("api.db.sslmode", apiCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("api.cors.origins", apiCmd.Flags().Lookup("cors-origins"))
}

func runAPI(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting api service")

	// Create API configuration from viper
	config := &api.ServerConfig{
		Logger:        logger,
		HTTPPort:      viper.GetInt("api.http.port"),
		DBHost:        viper.GetString("api.db.host"),
		DBPort:        viper.GetInt("api.db.port"),
		DBUser:        viper.GetString("api.db.user"),
		DBPassword:    viper.GetString("api.db.password"),
		DBName:        viper.GetString("api.db.name"),
		DBSSLMode:     viper.GetString("api.db.sslmode"),
		CORSOrigins:   viper.GetStringSlice("api.cors.origins"),
		Metrics:       metrics.NewAPIMetrics("scan_pipeline"),
		IngestMetrics: metrics.NewIngestMetrics("scan_pipeline"),
	}

	// Create and run server
	server, err := api.NewServer(config)
	if err != nil {
		logger.Error("failed to create api server", "error", err)
		return err
	}

	logger.Info("api server configuration",
		"http_port", config.HTTPPort,
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("api server error", "error", err)
		return err
	}

	logger.Info("api server stopped")
	return nil
}
