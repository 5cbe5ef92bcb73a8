package services

import (
	"mossi_registry/registry/auth"
	"mossi_registry/registry/storage"
	"mossi_registry/utils"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Variables struct {
	// Create requires an image url or upload when set.
	RequireImage bool

	// Requests per minute per client ip, 0 disables the limit.
	LoginRateLimit  int
	VerifyRateLimit int

	// Rate limits key on the client ip from True-Client-IP, X-Real-IP or
	// X-Forwarded-For instead of the connection address. Only set behind a
	// proxy that overwrites these headers.
	TrustProxyHeaders bool
}

func DefaultVariables() Variables {
	return Variables{RequireImage: true, LoginRateLimit: 20, VerifyRateLimit: 120}
}

type Registry struct {
	auth    AuthService
	artwork ArtworkService
	verify  VerifyService
}

func NewRegistry(db *gorm.DB, blobs storage.BlobStore, gate *auth.SessionGate, variables Variables) Registry {
	artworks := NewArtworkRegistry(db, blobs, variables.RequireImage)

	return Registry{
		auth: AuthService{gate: gate, loginLimit: rateLimit(variables.LoginRateLimit, variables.TrustProxyHeaders)},
		artwork: ArtworkService{
			registry: artworks,
			blobs:    blobs,
			gate:     gate,
		},
		verify: VerifyService{registry: artworks, verifyLimit: rateLimit(variables.VerifyRateLimit, variables.TrustProxyHeaders)},
	}
}

func (m *Registry) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Mount("/auth", m.auth.Routes())
	r.Mount("/artworks", m.artwork.Routes())
	r.Mount("/verify", m.verify.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJsonResponse(w, struct{}{})
	})

	return r
}
