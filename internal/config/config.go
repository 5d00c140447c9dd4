package config

import (
	"os"
	"strconv"
)

// Config carries the process configuration, read once at startup. An empty
// DatabaseURL selects the in-memory backend (demo mode).
type Config struct {
	ServiceName       string
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	MigrationsDir     string
	LowStockThreshold int
}

func Load() Config {
	return Config{
		ServiceName:       getenvDefault("SERVICE_NAME", "ordercore"),
		Env:               getenvDefault("ENV", "dev"),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MigrationsDir:     getenvDefault("MIGRATIONS_DIR", "migrations"),
		LowStockThreshold: getenvIntDefault("LOW_STOCK_THRESHOLD", 5),
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
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
