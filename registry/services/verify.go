package services

import (
	"log/slog"
	"mossi_registry/registry/schema"
	"mossi_registry/utils"
	"mossi_registry/utils/logging"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const invalidCodeMessage = "Invalid code or artwork not found"

type VerifyService struct {
	registry    *ArtworkRegistry
	verifyLimit func(http.Handler) http.Handler
}

func (s *VerifyService) Routes() chi.Router {
	r := chi.NewRouter()

	if s.verifyLimit != nil {
		r.Use(s.verifyLimit)
	}

	r.Get("/", s.Verify)

	return r
}

// Public projection of an artwork, timestamps are not exposed.
type VerifiedArtwork struct {
	Id             uint    `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Collection     *string `json:"collection"`
	Dimensions     *string `json:"dimensions"`
	Materials      *string `json:"materials"`
	Description    *string `json:"description"`
	ProductionDate *string `json:"productionDate"`
	ImageUrl       *string `json:"imageUrl"`
}

type VerifyResponse struct {
	Valid   bool             `json:"valid"`
	Artwork *VerifiedArtwork `json:"artwork,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func convertToVerifiedArtwork(artwork schema.Artwork) *VerifiedArtwork {
	return &VerifiedArtwork{
		Id:             artwork.Id,
		Code:           artwork.Code,
		Name:           artwork.Name,
		Collection:     artwork.Collection,
		Dimensions:     artwork.Dimensions,
		Materials:      artwork.Materials,
		Description:    artwork.Description,
		ProductionDate: artwork.ProductionDate,
		ImageUrl:       artwork.ImageUrl,
	}
}

func (s *VerifyService) Verify(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	artwork, err := s.registry.Lookup(r.Context(), code)
	if err != nil {
		switch status := GetResponseCode(err); {
		case status == http.StatusBadRequest:
			verifyRequests.WithLabelValues("bad_request").Inc()
			utils.WriteJsonResponseWithStatus(w, status, VerifyResponse{Valid: false, Error: err.Error()})
		case isNotFound(err):
			verifyRequests.WithLabelValues("not_found").Inc()
			utils.WriteJsonResponse(w, VerifyResponse{Valid: false, Message: invalidCodeMessage})
		default:
			verifyRequests.WithLabelValues("error").Inc()
			utils.WriteJsonResponseWithStatus(w, http.StatusInternalServerError, VerifyResponse{Valid: false, Error: errInternal.Error()})
		}
		return
	}

	verifyRequests.WithLabelValues("valid").Inc()
	slog.Debug("verified artwork", "artwork_id", artwork.Id, "code", logging.ARTWORK_VERIFY)

	utils.WriteJsonResponse(w, VerifyResponse{Valid: true, Artwork: convertToVerifiedArtwork(artwork)})
}
