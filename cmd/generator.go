package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/internal/producer"
	"medikon.dev/scan-pipeline/pkg/metrics"
)

var generatorCmd = &cobra.Command{
	Use:   "generator",
	Short: "Run the scan data generator",
	Long: `Run the data generator that:
- Simulates a fleet of imaging devices
- Generates synthetic scan sample matrices
- Publishes scan elements to RabbitMQ
- Supports multiple concurrent producers`,
	RunE: runGenerator,
}

func init() {
	rootCmd.AddCommand(generatorCmd)

	// Generator-specific flags
	generatorCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	generatorCmd.Flags().String("queue-name", "scan-data", "RabbitMQ queue name for scan elements")
	generatorCmd.Flags().Int("producer-count", 5, "Number of concurrent producers")
	generatorCmd.Flags().Duration("interval", 5*time.Second, "Interval between scan generation")

	// Bind flags to viper
	_ = viper.BindPFlag("generator.rabbitmq.url", generatorCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("generator.rabbitmq.queue_name", generatorCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("generator.producer_count", generatorCmd.Flags().Lookup("producer-count"))
	_ = viper.BindPFlag("generator.interval", generatorCmd.Flags().Lookup("interval"))
}

func runGenerator(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting generator service")

	// Create producer configuration from viper
	config := &producer.ServerConfig{
		Logger:        logger,
		RabbitMQURL:   viper.GetString("generator.rabbitmq.url"),
		QueueName:     viper.GetString("generator.rabbitmq.queue_name"),
		ProducerCount: viper.GetInt("generator.producer_count"),
		Interval:      viper.GetDuration("generator.interval"),
		Metrics:       metrics.NewGeneratorMetrics("scan_pipeline"),
		MQMetrics:     metrics.NewMQMetrics("scan_pipeline"),
	}

	// Create and run server
	server, err := producer.NewServer(config)
	if err != nil {
		logger.Error("failed to create generator server", "error", err)
		return err
	}

	logger.Info("generator server configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"scan_queue", config.QueueName,
		"producer_count", config.ProducerCount,
		"interval", config.Interval,
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("generator server error", "error", err)
		return err
	}

	logger.Info("generator server stopped")
	return nil
}
