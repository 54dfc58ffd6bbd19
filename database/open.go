// database/open.go
package database

import (
	"context"
	"fmt"
	"log"

	"voisss-backend/config"
)

// Open builds the backend named by cfg.Driver and connects it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	var s Store
	switch cfg.Driver {
	case "", "sqlite":
		s = NewSQLiteStore(cfg.SQLiteDir)
	case "postgres":
		s = NewPostgresStore(cfg.URL)
	case "redis":
		s = NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.Driver)
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	log.Printf("✅ [DB] connected (%s)", driverName(cfg.Driver))
	return s, nil
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}
