package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/2beens/gymstreak/internal/config"
	"github.com/2beens/gymstreak/internal/db"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// db_setup applies the schema to the configured postgres database. The
// exercise catalog is seeded by the service itself on startup.
func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	if cfg.StorageBackend != config.StorageBackendPostgres {
		log.Fatalf("storage backend is [%s], nothing to set up", cfg.StorageBackend)
	}

	dsn := db.ConnString(db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("GYMSTREAK_POSTGRES_PASS"),
	}) + "?sslmode=disable"

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db conn: %s", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Errorf("close db conn: %s", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.ApplySchema(ctx, sqlDB); err != nil {
		log.Fatalf("apply schema: %s", err)
	}
	log.Infof("schema applied to [%s]", cfg.PostgresDBName)
}
