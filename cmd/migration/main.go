package main

import (
	"flag"
	"log"
	"log/slog"
	"mossi_registry/registry/schema"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type migrationEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from")
	dbUri := flag.String("db", "", "Database uri, overrides DATABASE_URI")
	rollback := flag.Bool("rollback", false, "Roll back the most recent migration instead of migrating")

	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	uri := *dbUri
	if uri == "" {
		cfg := migrationEnv{}
		if err := env.Parse(&cfg); err != nil {
			log.Fatalf("failed to load environment variables: %v", err)
		}
		uri = cfg.DatabaseUri
	}

	db, err := schema.OpenDb(uri, schema.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		log.Fatalf("error opening db: %v", err)
	}

	if *rollback {
		if err := schema.RollbackLast(db); err != nil {
			log.Fatal(err)
		}
		slog.Info("rolled back last migration")
		return
	}

	if err := schema.Migrate(db); err != nil {
		log.Fatal(err)
	}
	slog.Info("migrations applied")
}
