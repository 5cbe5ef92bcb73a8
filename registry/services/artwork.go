package services

import (
	"mossi_registry/registry/auth"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/storage"
	"mossi_registry/utils"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type ArtworkService struct {
	registry *ArtworkRegistry
	blobs    storage.BlobStore
	gate     *auth.SessionGate
}

func (s *ArtworkService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.gate.AuthMiddleware()...)

	r.Get("/", s.List)
	r.With(checkSufficientStorage(s.blobs)).Post("/", s.Create)

	r.Route("/{artwork_id}", func(r chi.Router) {
		r.With(checkSufficientStorage(s.blobs)).Put("/", s.Update)
		r.Delete("/", s.Delete)
	})

	return r
}

type ArtworkInfo struct {
	Id             uint      `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Collection     *string   `json:"collection"`
	Dimensions     *string   `json:"dimensions"`
	Materials      *string   `json:"materials"`
	Description    *string   `json:"description"`
	ProductionDate *string   `json:"productionDate"`
	ImageUrl       *string   `json:"imageUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func convertToArtworkInfo(artwork schema.Artwork) ArtworkInfo {
	return ArtworkInfo{
		Id:             artwork.Id,
		Code:           artwork.Code,
		Name:           artwork.Name,
		Collection:     artwork.Collection,
		Dimensions:     artwork.Dimensions,
		Materials:      artwork.Materials,
		Description:    artwork.Description,
		ProductionDate: artwork.ProductionDate,
		ImageUrl:       artwork.ImageUrl,
		CreatedAt:      artwork.CreatedAt,
		UpdatedAt:      artwork.UpdatedAt,
	}
}

type ArtworkListResponse struct {
	Artworks []ArtworkInfo `json:"artworks"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
}

type ArtworkResponse struct {
	Artwork ArtworkInfo `json:"artwork"`
}

func (s *ArtworkService) List(w http.ResponseWriter, r *http.Request) {
	query := DefaultListQuery()
	query.Search = r.URL.Query().Get("search")

	var err error
	if query.Page, err = utils.IntQueryParam(r, "page", query.Page); err != nil {
		writeError(w, CodedError(ErrInvalidPage, http.StatusBadRequest))
		return
	}
	if query.Limit, err = utils.IntQueryParam(r, "limit", query.Limit); err != nil {
		writeError(w, CodedError(ErrInvalidLimit, http.StatusBadRequest))
		return
	}

	result, err := s.registry.List(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	infos := make([]ArtworkInfo, 0, len(result.Artworks))
	for _, artwork := range result.Artworks {
		infos = append(infos, convertToArtworkInfo(artwork))
	}

	utils.WriteJsonResponse(w, ArtworkListResponse{Artworks: infos, Total: result.Total, Page: result.Page, Limit: result.Limit})
}

func (s *ArtworkService) Create(w http.ResponseWriter, r *http.Request) {
	cmd, err := decodeArtworkCommand(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	artwork, err := s.registry.Create(r.Context(), cmd)
	if err != nil {
		artworkMutations.WithLabelValues("create", "error").Inc()
		writeError(w, err)
		return
	}
	artworkMutations.WithLabelValues("create", "success").Inc()

	utils.WriteJsonResponseWithStatus(w, http.StatusCreated, ArtworkResponse{Artwork: convertToArtworkInfo(artwork)})
}

func (s *ArtworkService) Update(w http.ResponseWriter, r *http.Request) {
	artworkId, err := utils.URLParamUint(r, "artwork_id")
	if err != nil {
		writeError(w, CodedError(ErrInvalidArtworkId, http.StatusBadRequest))
		return
	}

	cmd, err := decodeArtworkCommand(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	artwork, err := s.registry.Update(r.Context(), artworkId, cmd)
	if err != nil {
		artworkMutations.WithLabelValues("update", "error").Inc()
		writeError(w, err)
		return
	}
	artworkMutations.WithLabelValues("update", "success").Inc()

	utils.WriteJsonResponse(w, ArtworkResponse{Artwork: convertToArtworkInfo(artwork)})
}

func (s *ArtworkService) Delete(w http.ResponseWriter, r *http.Request) {
	artworkId, err := utils.URLParamUint(r, "artwork_id")
	if err != nil {
		writeError(w, CodedError(ErrInvalidArtworkId, http.StatusBadRequest))
		return
	}

	if err := s.registry.Delete(r.Context(), artworkId); err != nil {
		artworkMutations.WithLabelValues("delete", "error").Inc()
		writeError(w, err)
		return
	}
	artworkMutations.WithLabelValues("delete", "success").Inc()

	utils.WriteSuccess(w)
}
