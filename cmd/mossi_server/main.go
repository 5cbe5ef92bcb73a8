package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/services"
	"mossi_registry/registry/storage"
	"mossi_registry/utils/logging"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
)

type S3Env struct {
	Bucket    string `env:"S3_BUCKET"`
	Prefix    string `env:"S3_PREFIX"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	PublicUrl string `env:"S3_PUBLIC_URL"`
}

type ServerEnv struct {
	DatabaseUri    string `env:"DATABASE_URI" envDefault:"mossi.db"`
	DbMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	JwtSecret     string `env:"JWT_SECRET,required"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	LogDir string `env:"LOG_DIR" envDefault:"logs"`

	BlobBackend string `env:"BLOB_BACKEND" envDefault:"local"`
	UploadDir   string `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	S3          S3Env  `env:""`

	RequireImage    bool `env:"REQUIRE_IMAGE" envDefault:"true"`
	LoginRateLimit  int  `env:"LOGIN_RATE_LIMIT" envDefault:"20"`
	VerifyRateLimit int  `env:"VERIFY_RATE_LIMIT" envDefault:"120"`

	// Set when deployed behind an ingress that overwrites X-Forwarded-For.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Origins allowed to make credentialed cross origin requests. Empty means
	// same origin only.
	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

func (e *ServerEnv) production() bool {
	return e.AppEnv == "production"
}

func (e *ServerEnv) storageConfig() storage.Config {
	return storage.Config{
		Backend:   e.BlobBackend,
		UploadDir: e.UploadDir,
		S3: storage.S3Config{
			Bucket:    e.S3.Bucket,
			Prefix:    e.S3.Prefix,
			Region:    e.S3.Region,
			Endpoint:  e.S3.Endpoint,
			AccessKey: e.S3.AccessKey,
			SecretKey: e.S3.SecretKey,
			PublicUrl: e.S3.PublicUrl,
		},
	}
}

/**
 * All variables used by the server are loaded here, so that the exposed
 * configuration and how it is propagated is visible in one place.
 */
func loadEnv() (*ServerEnv, error) {
	cfg := &ServerEnv{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	log.Printf("loading env from file %v", envFile)
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("error loading .env file '%v': %w", envFile, err)
	}
	return nil
}

func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, fmt.Errorf("error creating log dir: %w", err)
	}
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
}

type probes struct {
	ready atomic.Bool
}

func (p *probes) livez(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"alive"}`))
}

func (p *probes) readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !p.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Wildcard origins are dropped, credentialed responses must name the origin.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" && origin != "*" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		slog.Warn("no usable cors origins configured, cross origin requests are disabled", "origins", origins)
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func buildRouter(env *ServerEnv, registry services.Registry, blobs storage.BlobStore, probes *probes) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return httplogger.LoggingMiddlewareSlog(slog.Default(), next)
	})
	if len(env.CorsOrigins) > 0 {
		r.Use(corsHandler(env.CorsOrigins))
	}

	r.Mount("/api", registry.Routes())

	if uploads := blobs.Routes(); uploads != nil {
		r.Mount(storage.UploadsPath, uploads)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/livez", probes.livez)
	r.Get("/readyz", probes.readyz)

	return r
}

// Separate from main so that deferred cleanup runs before the process exits.
func runApp() error {
	envFile := flag.String("env", "", "File to load env variables from")
	port := flag.Int("port", 8000, "Port to run server on")
	shutdownTimeout := flag.Duration("shutdown-timeout", 30*time.Second, "Time allowed for in flight requests to finish")

	flag.Parse()

	if *envFile != "" {
		if err := loadEnvFile(*envFile); err != nil {
			return err
		}
	}

	env, err := loadEnv()
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	logFile, err := openLogFile(env.LogDir, "mossi.log")
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer logFile.Close()

	logging.InitLogging(logFile, "mossi_server")

	auditLog, err := openLogFile(env.LogDir, "audit.log")
	if err != nil {
		return fmt.Errorf("error opening audit log: %w", err)
	}
	defer auditLog.Close()

	db, err := schema.OpenDb(env.DatabaseUri, schema.PoolOptions{
		MaxOpenConns:    env.DbMaxOpenConns,
		MaxIdleConns:    env.DbMaxOpenConns,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return err
	}
	sqlDb, err := db.DB()
	if err != nil {
		return fmt.Errorf("error getting sql db handle: %w", err)
	}
	defer func() {
		if err := sqlDb.Close(); err != nil {
			slog.Error("error closing db", "error", err)
		}
	}()

	if err := schema.Migrate(db); err != nil {
		return err
	}

	blobs, err := storage.New(env.storageConfig())
	if err != nil {
		return fmt.Errorf("error initializing blob store: %w", err)
	}
	slog.Info("blob store initialized", "backend", blobs.Type(), "code", logging.BLOB_STORE)

	gate, err := auth.NewSessionGate(db, auth.NewAuditLogger(auditLog), auth.SessionGateArgs{
		Secret:        []byte(env.JwtSecret),
		SecureCookies: env.production(),
		AdminEmail:    env.AdminEmail,
		AdminPassword: env.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("error creating session gate: %w", err)
	}

	registry := services.NewRegistry(db, blobs, gate, services.Variables{
		RequireImage:      env.RequireImage,
		LoginRateLimit:    env.LoginRateLimit,
		VerifyRateLimit:   env.VerifyRateLimit,
		TrustProxyHeaders: env.TrustProxyHeaders,
	})

	health := &probes{}
	health.ready.Store(true)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           buildRouter(env, registry, blobs, health),
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		defer close(idleConnsClosed)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutdown signal received", "code", logging.SYSTEM)
		health.ready.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("http server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", *port, "env", env.AppEnv, "code", logging.SYSTEM)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve returned error: %w", err)
	}

	<-idleConnsClosed
	slog.Info("server stopped", "code", logging.SYSTEM)
	return nil
}

func main() {
	if err := runApp(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}
