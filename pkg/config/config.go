package config

import (
	"os"
	"strconv"
)

type Postgres struct {
	Host    string
	Port    int
	User    string
	Pass    string
	DB      string
	SSLMode string
}

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort int

	// Store selects the persistence backend: "postgres" or "memory".
	Store string

	Postgres Postgres
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		Store:    getEnv("STORE", "postgres"),
		Postgres: Postgres{
			Host:    getEnv("POSTGRES_HOST", "localhost"),
			Port:    getEnvInt("POSTGRES_PORT", 5432),
			User:    getEnv("POSTGRES_USER", "gym"),
			Pass:    getEnv("POSTGRES_PASSWORD", "gympassword"),
			DB:      getEnv("POSTGRES_DB", "gym_db"),
			SSLMode: getEnv("POSTGRES_SSLMODE", "disable"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}
