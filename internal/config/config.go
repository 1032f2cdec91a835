package config

import (
	"fmt"
	"os"
)

// Config collects the environment the server needs at startup. Database
// credentials keep their own variables and are read by the database package.
type Config struct {
	Port            string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DefinitionsPath string
	AllowedOrigins  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		DefinitionsPath: os.Getenv("SEMANTIQ_DEFINITIONS"),
		AllowedOrigins:  []string{getenv("FRONTEND_ORIGIN", "http://localhost:3000")},
	}

	if os.Getenv("SESSION_TOKEN_SECRET") == "" {
		return nil, fmt.Errorf("SESSION_TOKEN_SECRET is not set")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
