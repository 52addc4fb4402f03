package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleet-report-builder/config"
	"fleet-report-builder/internal/backend"
	"fleet-report-builder/internal/logger"
)

var configPath string

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "fleetreports",
		Short: "Fleet report builder",
		Long: `Configures and generates fleet reports (check-ins, engine hours and
stale GPS) against the report backend, and serves the report wizard API.`,
		SilenceUsage: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml" // Default path for local development
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to the YAML configuration")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(trackersCmd())
	rootCmd.AddCommand(reportsCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	log := logger.New(cfg.Log.Environment, cfg.Log.Level)
	log.Debug().Str("path", configPath).Msg("configuration loaded")
	return cfg, log, nil
}

func newClient(cfg *config.Config, log zerolog.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend, log)
}
