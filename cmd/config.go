package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"medikon.dev/scan-pipeline/pkg/logger"
)

// InitConfig initializes Viper configuration.
// It supports reading from config files (config.yaml) and environment variables.
func InitConfig(cfgFile string) error {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory and /etc/scan-pipeline/
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/scan-pipeline/")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables
	viper.SetEnvPrefix("SCAN_PIPELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFoundErr) {
			// Config file not found; rely on env vars and defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// GetLogger creates a slog.Logger based on configuration. When log.file
// is set, log lines go to both stdout and the file.
func GetLogger() *slog.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(viper.GetString("log.level"))

	if path := viper.GetString("log.file"); path != "" {
		file, err := logger.OpenFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file, logging to stdout only: %v\n", err)
		} else {
			cfg.Output = io.MultiWriter(os.Stdout, file)
		}
	}

	return logger.New(cfg)
}
