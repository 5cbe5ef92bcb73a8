package services

import (
	"context"
	"errors"
	"log/slog"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/storage"
	"mossi_registry/utils/logging"
	"net/http"
	"net/url"
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type ImageInput struct {
	Url    string
	Upload *storage.Blob
}

func (i ImageInput) present() bool {
	return i.Upload != nil || strings.TrimSpace(i.Url) != ""
}

// Fields submitted for a create or update, before normalization.
type ArtworkCommand struct {
	Code           string
	Name           string
	Collection     string
	Dimensions     string
	Materials      string
	Description    string
	ProductionDate string
	Image          ImageInput
}

// Page and Limit are validated as given, see DefaultListQuery.
type ListQuery struct {
	Search string
	Page   int
	Limit  int
}

func DefaultListQuery() ListQuery {
	return ListQuery{Page: defaultPage, Limit: defaultLimit}
}

type ListResult struct {
	Artworks []schema.Artwork
	Total    int64
	Page     int
	Limit    int
}

type ArtworkRegistry struct {
	db           *gorm.DB
	blobs        storage.BlobStore
	requireImage bool
}

func NewArtworkRegistry(db *gorm.DB, blobs storage.BlobStore, requireImage bool) *ArtworkRegistry {
	return &ArtworkRegistry{db: db, blobs: blobs, requireImage: requireImage}
}

func (r *ArtworkRegistry) missingFieldsError() error {
	if r.requireImage {
		return CodedError(ErrMissingImageField, http.StatusBadRequest)
	}
	return CodedError(ErrMissingFields, http.StatusBadRequest)
}

func validateImageUrl(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return CodedError(ErrInvalidImageUrl, http.StatusBadRequest)
	}
	return nil
}

func (r *ArtworkRegistry) validate(cmd ArtworkCommand, imageRequired bool) error {
	if schema.NormalizeCode(cmd.Code) == "" || strings.TrimSpace(cmd.Name) == "" {
		return r.missingFieldsError()
	}
	if imageRequired && !cmd.Image.present() {
		return r.missingFieldsError()
	}
	if cmd.Image.Upload != nil {
		if err := storage.ValidateUpload(*cmd.Image.Upload); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}
		if r.blobs == nil {
			slog.Error("image upload received but no blob store is configured")
			return CodedError(errInternal, http.StatusInternalServerError)
		}
	}
	return validateImageUrl(cmd.Image.Url)
}

func checkCodeAvailable(txn *gorm.DB, code string, excludeId uint) error {
	query := txn.Model(&schema.Artwork{}).Where("code = ?", code)
	if excludeId != 0 {
		query = query.Where("id <> ?", excludeId)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		slog.Error("sql error checking for existing artwork code", "code", code, "error", err)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	if count > 0 {
		return CodedError(ErrCodeAlreadyExists, http.StatusBadRequest)
	}
	return nil
}

// Returns the reference to record for the image, and the reference of a blob
// written by this call which must be discarded if the write is rolled back.
func (r *ArtworkRegistry) storeImage(ctx context.Context, image ImageInput) (*string, string, error) {
	if image.Upload != nil {
		ref, err := r.blobs.Put(ctx, *image.Upload)
		if err != nil {
			if storage.IsUploadRejected(err) {
				return nil, "", CodedError(err, http.StatusBadRequest)
			}
			return nil, "", CodedError(err, http.StatusInternalServerError)
		}
		return &ref, ref, nil
	}
	return schema.OptionalText(image.Url), "", nil
}

func (r *ArtworkRegistry) discardBlob(ref string) {
	if ref == "" {
		return
	}
	// The request context may already be cancelled at this point.
	if err := r.blobs.Delete(context.Background(), ref); err != nil {
		slog.Error("error discarding blob after failed write", "ref", ref, "error", err, "code", logging.BLOB_STORE)
	}
}

func applyFields(artwork *schema.Artwork, cmd ArtworkCommand) {
	artwork.Code = schema.NormalizeCode(cmd.Code)
	artwork.Name = strings.TrimSpace(cmd.Name)
	artwork.Collection = schema.OptionalText(cmd.Collection)
	artwork.Dimensions = schema.OptionalText(cmd.Dimensions)
	artwork.Materials = schema.OptionalText(cmd.Materials)
	artwork.Description = schema.OptionalText(cmd.Description)
	artwork.ProductionDate = schema.OptionalText(cmd.ProductionDate)
}

func (q ListQuery) applyFilters(query *gorm.DB) *gorm.DB {
	search := strings.TrimSpace(q.Search)
	if search == "" {
		return query
	}
	pattern := "%" + escapeLike(schema.FoldCase(search)) + "%"
	return query.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
}

func (r *ArtworkRegistry) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Page < 1 {
		return ListResult{}, CodedError(ErrInvalidPage, http.StatusBadRequest)
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return ListResult{}, CodedError(ErrInvalidLimit, http.StatusBadRequest)
	}

	var total int64
	result := q.applyFilters(r.db.WithContext(ctx).Model(&schema.Artwork{})).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting artworks", "error", result.Error)
		return ListResult{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	artworks := make([]schema.Artwork, 0, q.Limit)
	result = q.applyFilters(r.db.WithContext(ctx)).
		Order("created_at DESC").Order("id DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Find(&artworks)
	if result.Error != nil {
		slog.Error("sql error listing artworks", "error", result.Error)
		return ListResult{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return ListResult{Artworks: artworks, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (r *ArtworkRegistry) Lookup(ctx context.Context, code string) (schema.Artwork, error) {
	normalized := schema.NormalizeCode(code)
	if normalized == "" {
		return schema.Artwork{}, CodedError(ErrMissingCode, http.StatusBadRequest)
	}

	artwork, err := schema.GetArtworkByCode(normalized, r.db.WithContext(ctx))
	if err != nil {
		return schema.Artwork{}, lookupError(err)
	}
	return artwork, nil
}

func (r *ArtworkRegistry) Create(ctx context.Context, cmd ArtworkCommand) (schema.Artwork, error) {
	if err := r.validate(cmd, r.requireImage); err != nil {
		return schema.Artwork{}, err
	}

	var artwork schema.Artwork
	var writtenBlob string

	err := r.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		code := schema.NormalizeCode(cmd.Code)
		if err := checkCodeAvailable(txn, code, 0); err != nil {
			return err
		}

		imageUrl, blob, err := r.storeImage(ctx, cmd.Image)
		if err != nil {
			return err
		}
		writtenBlob = blob

		applyFields(&artwork, cmd)
		artwork.ImageUrl = imageUrl

		if result := txn.Create(&artwork); result.Error != nil {
			return artworkWriteError(result.Error, "creating artwork")
		}
		return nil
	})

	if err != nil {
		r.discardBlob(writtenBlob)
		return schema.Artwork{}, err
	}

	slog.Info("created artwork", "artwork_id", artwork.Id, "artwork_code", artwork.Code, "code", logging.ARTWORK_CREATE)
	return artwork, nil
}

func (r *ArtworkRegistry) Update(ctx context.Context, artworkId uint, cmd ArtworkCommand) (schema.Artwork, error) {
	if err := r.validate(cmd, false); err != nil {
		return schema.Artwork{}, err
	}

	var artwork schema.Artwork
	var writtenBlob string

	err := r.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		existing, err := schema.GetArtwork(artworkId, txn)
		if err != nil {
			return lookupError(err)
		}

		if r.requireImage && !cmd.Image.present() && existing.ImageUrl == nil {
			return r.missingFieldsError()
		}

		code := schema.NormalizeCode(cmd.Code)
		if code != existing.Code {
			if err := checkCodeAvailable(txn, code, artworkId); err != nil {
				return err
			}
		}

		if cmd.Image.present() {
			imageUrl, blob, err := r.storeImage(ctx, cmd.Image)
			if err != nil {
				return err
			}
			writtenBlob = blob
			existing.ImageUrl = imageUrl
		}

		applyFields(&existing, cmd)

		if result := txn.Save(&existing); result.Error != nil {
			return artworkWriteError(result.Error, "updating artwork")
		}

		artwork = existing
		return nil
	})

	if err != nil {
		r.discardBlob(writtenBlob)
		return schema.Artwork{}, err
	}

	slog.Info("updated artwork", "artwork_id", artwork.Id, "artwork_code", artwork.Code, "code", logging.ARTWORK_UPDATE)
	return artwork, nil
}

// Blobs referenced by the artwork are kept, they may be shared with other records.
func (r *ArtworkRegistry) Delete(ctx context.Context, artworkId uint) error {
	err := r.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetArtwork(artworkId, txn); err != nil {
			return lookupError(err)
		}

		if result := txn.Delete(&schema.Artwork{}, artworkId); result.Error != nil {
			slog.Error("sql error deleting artwork", "artwork_id", artworkId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted artwork", "artwork_id", artworkId, "code", logging.ARTWORK_DELETE)
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, schema.ErrArtworkNotFound)
}
