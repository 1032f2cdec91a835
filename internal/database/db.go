package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectAppStore opens the application's own catalog database through gorm.
// Connection parameters come from the environment.
func ConnectAppStore() (*gorm.DB, error) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_DATABASE"} {
		if os.Getenv(key) == "" {
			return nil, fmt.Errorf("%s environment variable is required", key)
		}
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_DATABASE"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	log.Printf("Connected to catalog database %s at %s:%s",
		os.Getenv("DB_DATABASE"), os.Getenv("DB_HOST"), os.Getenv("DB_PORT"))
	return db, nil
}

// ConnectWithConfig opens a pgx pool against an operator-supplied target
// database, described by a schema's connection_config map. Used only for
// read-only introspection.
func ConnectWithConfig(ctx context.Context, connConfig map[string]any) (*pgxpool.Pool, error) {
	host := configString(connConfig, "host")
	port := configString(connConfig, "port")
	user := configString(connConfig, "username")
	password := configString(connConfig, "password")
	dbname := configString(connConfig, "database")
	if host == "" || port == "" || user == "" || dbname == "" {
		return nil, fmt.Errorf("connection_config must include host, port, username and database")
	}
	sslmode := configString(connConfig, "sslmode")
	if sslmode == "" {
		sslmode = "disable"
	}

	userInfo := url.UserPassword(user, password)
	dsn := fmt.Sprintf(
		"postgres://%s@%s:%s/%s?sslmode=%s",
		userInfo.String(),
		host,
		port,
		url.PathEscape(dbname),
		sslmode,
	)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	config.MaxConns = 5
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping target database: %w", err)
	}

	return pool, nil
}

func configString(config map[string]any, key string) string {
	switch v := config[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
