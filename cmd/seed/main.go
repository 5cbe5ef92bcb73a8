package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"mossi_registry/registry/schema"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type seedEnv struct {
	DatabaseUri   string `env:"DATABASE_URI" envDefault:"mossi.db"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from")
	catalogPath := flag.String("catalog", "", "Yaml catalog to seed, defaults to the bundled demo catalog")

	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	cfg := seedEnv{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load environment variables: %v", err)
	}

	c, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.AdminEmail != "" {
		c.Admin.Email = cfg.AdminEmail
	}
	if cfg.AdminPassword != "" {
		c.Admin.Password = cfg.AdminPassword
	}

	db, err := schema.OpenDb(cfg.DatabaseUri, schema.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		log.Fatalf("error opening db: %v", err)
	}

	if err := schema.Migrate(db); err != nil {
		log.Fatal(err)
	}

	res, err := seed(context.Background(), db, c)
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("seed complete", "admin", c.Admin.Email, "created", res.Created, "skipped", res.Skipped)
}
