package main

import (
	"context"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, "admin@mossi.local", c.Admin.Email)
	require.Len(t, c.Artworks, 1)
	assert.Equal(t, "MOSS-0001", c.Artworks[0].Code)
	assert.Equal(t, "Forest Harmony", c.Artworks[0].Name)
	assert.Equal(t, "2024-01-15", c.Artworks[0].ProductionDate)
}

func TestSeedIsIdempotent(t *testing.T) {
	db, err := schema.OpenDb("file:"+uuid.NewString()+"?mode=memory&cache=shared", schema.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, schema.Migrate(db))

	c, err := loadCatalog("")
	require.NoError(t, err)

	res, err := seed(context.Background(), db, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Created: 1}, res)

	res, err = seed(context.Background(), db, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Skipped: 1}, res)

	artwork, err := schema.GetArtworkByCode("MOSS-0001", db)
	require.NoError(t, err)
	require.NotNil(t, artwork.ImageUrl)
	assert.Equal(t, "/uploads/demo.jpg", *artwork.ImageUrl)

	admin, err := schema.GetAdminUserByEmail("admin@mossi.local", db)
	require.NoError(t, err)
	assert.NoError(t, auth.VerifyPassword(admin.Password, "admin123"))
}
