package config

import (
	"os"
	"strconv"
)

// Environment variables that override file settings.
const (
	EnvDebug        = "JOBNORM_DEBUG"
	EnvHost         = "JOBNORM_HOST"
	EnvPort         = "JOBNORM_PORT"
	EnvDatabasePath = "JOBNORM_DATABASE_PATH"
)

// ApplyEnv overrides cfg with any JOBNORM_* variables that are set and parse.
func ApplyEnv(cfg *Config) {
	cfg.Debug = GetBoolEnv(EnvDebug, cfg.Debug)
	cfg.Server.Host = GetStringEnv(EnvHost, cfg.Server.Host)
	cfg.Server.Port = GetIntEnv(EnvPort, cfg.Server.Port)
	cfg.Storage.DatabasePath = GetStringEnv(EnvDatabasePath, cfg.Storage.DatabasePath)
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
