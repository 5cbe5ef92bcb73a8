package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/services"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type catalogArtwork struct {
	Code           string `yaml:"code"`
	Name           string `yaml:"name"`
	Collection     string `yaml:"collection"`
	Dimensions     string `yaml:"dimensions"`
	Materials      string `yaml:"materials"`
	Description    string `yaml:"description"`
	ProductionDate string `yaml:"productionDate"`
	ImageUrl       string `yaml:"imageUrl"`
}

type catalog struct {
	Admin    catalogAdmin     `yaml:"admin"`
	Artworks []catalogArtwork `yaml:"artworks"`
}

func parseCatalog(data []byte) (catalog, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return catalog{}, fmt.Errorf("error parsing catalog: %w", err)
	}
	return c, nil
}

// Reads the catalog at path, or the bundled demo catalog if path is empty.
func loadCatalog(path string) (catalog, error) {
	if path == "" {
		return parseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog{}, fmt.Errorf("error reading catalog '%v': %w", path, err)
	}
	return parseCatalog(data)
}

func (a catalogArtwork) command() services.ArtworkCommand {
	return services.ArtworkCommand{
		Code:           a.Code,
		Name:           a.Name,
		Collection:     a.Collection,
		Dimensions:     a.Dimensions,
		Materials:      a.Materials,
		Description:    a.Description,
		ProductionDate: a.ProductionDate,
		Image:          services.ImageInput{Url: a.ImageUrl},
	}
}

type seedResult struct {
	Created int
	Skipped int
}

// Seeding is idempotent: the admin is only created if missing and artworks whose
// code is already registered are skipped.
func seed(ctx context.Context, db *gorm.DB, c catalog) (seedResult, error) {
	if err := auth.AddAdmin(db, c.Admin.Email, c.Admin.Password); err != nil {
		return seedResult{}, fmt.Errorf("error seeding admin: %w", err)
	}

	registry := services.NewArtworkRegistry(db, nil, false)

	var res seedResult
	for _, entry := range c.Artworks {
		_, err := registry.Lookup(ctx, entry.Code)
		if err == nil {
			slog.Info("artwork already registered, skipping", "artwork_code", entry.Code)
			res.Skipped++
			continue
		}
		if !errors.Is(err, schema.ErrArtworkNotFound) {
			return res, fmt.Errorf("error checking artwork '%v': %w", entry.Code, err)
		}

		artwork, err := registry.Create(ctx, entry.command())
		if err != nil {
			return res, fmt.Errorf("error seeding artwork '%v': %w", entry.Code, err)
		}
		slog.Info("seeded artwork", "artwork_id", artwork.Id, "artwork_code", artwork.Code)
		res.Created++
	}

	return res, nil
}
