package config

import (
	"os"
	"strconv"
)

// Environment variables that override the YAML file.
const (
	EnvBackendURL      = "FLEET_BACKEND_URL"
	EnvDatabaseDSN     = "FLEET_DATABASE_DSN"
	EnvPort            = "FLEET_PORT"
	EnvVAPIDPublicKey  = "FLEET_VAPID_PUBLIC_KEY"
	EnvVAPIDPrivateKey = "FLEET_VAPID_PRIVATE_KEY"
	EnvLogLevel        = "FLEET_LOG_LEVEL"
)

// ApplyEnv overrides file values with the environment. Unparsable numbers
// are ignored.
func (cfg *Config) ApplyEnv() {
	cfg.Backend.BaseURL = getEnv(EnvBackendURL, cfg.Backend.BaseURL)
	cfg.Database.DSN = getEnv(EnvDatabaseDSN, cfg.Database.DSN)
	cfg.Push.PublicKey = getEnv(EnvVAPIDPublicKey, cfg.Push.PublicKey)
	cfg.Push.PrivateKey = getEnv(EnvVAPIDPrivateKey, cfg.Push.PrivateKey)
	cfg.Log.Level = getEnv(EnvLogLevel, cfg.Log.Level)
	cfg.Server.Port = getEnvInt(EnvPort, cfg.Server.Port)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
