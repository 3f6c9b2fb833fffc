package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/internal/worker"
	"medikon.dev/scan-pipeline/pkg/metrics"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scan queue worker",
	Long: `Run the worker that:
- Consumes scan elements from RabbitMQ
- Normalizes scan samples and stores processing results in PostgreSQL
- Exposes /healthz and Prometheus /metrics`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	// Worker-specific flags
	workerCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	workerCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	workerCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	workerCmd.Flags().String("db-password", "", "PostgreSQL password")
	workerCmd.Flags().String("db-name", "scans", "PostgreSQL database name")
	workerCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	workerCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	workerCmd.Flags().String("queue-name", "scan-data", "RabbitMQ queue name for scan elements")
	workerCmd.Flags().Int("http-port", 8081, "health endpoint port")

	// Bind flags to viper
	_ = viper.BindPFlag("worker.db.host", workerCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("worker.db.port", workerCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("worker.db.user", workerCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("worker.db.password", workerCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("worker.db.name", workerCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("worker.db.sslmode", workerCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("worker.rabbitmq.url", workerCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("worker.rabbitmq.queue_name", workerCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("worker.http.port", workerCmd.Flags().Lookup("http-port"))
}

func runWorker(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting worker service")

	// Create worker configuration from viper
	config := &worker.ServerConfig{
		Logger:        logger,
		DBHost:        viper.GetString("worker.db.host"),
		DBPort:        viper.GetInt("worker.db.port"),
		DBUser:        viper.GetString("worker.db.user"),
		DBPassword:    viper.GetString("worker.db.password"),
		DBName:        viper.GetString("worker.db.name"),
		DBSSLMode:     viper.GetString("worker.db.sslmode"),
		RabbitMQURL:   viper.GetString("worker.rabbitmq.url"),
		QueueName:     viper.GetString("worker.rabbitmq.queue_name"),
		HTTPPort:      viper.GetInt("worker.http.port"),
		Metrics:       metrics.NewWorkerMetrics("scan_pipeline"),
		IngestMetrics: metrics.NewIngestMetrics("scan_pipeline"),
	}

	// Create and run server
	server, err := worker.NewServer(config)
	if err != nil {
		logger.Error("failed to create worker server", "error", err)
		return err
	}

	logger.Info("worker server configuration",
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"rabbitmq_url", config.RabbitMQURL,
		"scan_queue", config.QueueName,
		"http_port", config.HTTPPort,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("worker server error", "error", err)
		return err
	}

	logger.Info("worker server stopped")
	return nil
}
