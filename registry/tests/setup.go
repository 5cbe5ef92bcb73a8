package tests

import (
	"bytes"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/services"
	"mossi_registry/registry/storage"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testEnv struct {
	registry services.Registry
	api      chi.Router
	db       *gorm.DB
	blobs    *storage.LocalDiskStore
	audit    *bytes.Buffer
}

const (
	adminEmail    = "admin@mossi.local"
	adminPassword = "admin123"
)

var testSecret = []byte("290zcv02ai249")

func defaultTestVariables() services.Variables {
	return services.DefaultVariables()
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithVariables(t, defaultTestVariables())
}

func setupTestEnvWithVariables(t *testing.T, variables services.Variables) *testEnv {
	db, err := schema.OpenDb("file:"+uuid.NewString()+"?mode=memory&cache=shared", schema.PoolOptions{MaxOpenConns: 1})
	if err != nil {
		t.Fatal(err)
	}

	if err := schema.Migrate(db); err != nil {
		t.Fatal(err)
	}

	blobs, err := storage.NewLocalDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	audit := new(bytes.Buffer)
	gate, err := auth.NewSessionGate(db, auth.NewAuditLogger(audit), auth.SessionGateArgs{
		Secret:        testSecret,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	if err != nil {
		t.Fatal(err)
	}

	registry := services.NewRegistry(db, blobs, gate, variables)

	api := chi.NewRouter()
	api.Mount("/api", registry.Routes())
	api.Mount(storage.UploadsPath, blobs.Routes())

	return &testEnv{registry: registry, api: api, db: db, blobs: blobs, audit: audit}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}

func (t *testEnv) artworkCount() int64 {
	var count int64
	t.db.Model(&schema.Artwork{}).Count(&count)
	return count
}
