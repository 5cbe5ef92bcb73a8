package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mossi_registry/registry/storage"
	"net/http"
	"strings"
)

// Multipart bodies may carry one image plus the text fields.
const (
	maxFormOverhead    = 1 << 20
	maxMultipartMemory = 8 << 20
	maxJsonBodySize    = 1 << 20
)

var ErrUnsupportedContentType = errors.New("Content-Type must be application/json or multipart/form-data")

type artworkRequest struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Collection     string `json:"collection"`
	Dimensions     string `json:"dimensions"`
	Materials      string `json:"materials"`
	Description    string `json:"description"`
	ProductionDate string `json:"productionDate"`
	ImageUrl       string `json:"imageUrl"`
}

func (req artworkRequest) command() ArtworkCommand {
	return ArtworkCommand{
		Code:           req.Code,
		Name:           req.Name,
		Collection:     req.Collection,
		Dimensions:     req.Dimensions,
		Materials:      req.Materials,
		Description:    req.Description,
		ProductionDate: req.ProductionDate,
		Image:          ImageInput{Url: req.ImageUrl},
	}
}

// Decodes a create or update request. JSON bodies reference the image by url,
// multipart bodies may upload it as the "image" file part.
func decodeArtworkCommand(w http.ResponseWriter, r *http.Request) (ArtworkCommand, error) {
	mediaType := "application/json"
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return ArtworkCommand{}, CodedError(ErrUnsupportedContentType, http.StatusUnsupportedMediaType)
		}
		mediaType = parsed
	}

	switch mediaType {
	case "application/json":
		return decodeJsonCommand(w, r)
	case "multipart/form-data":
		return decodeMultipartCommand(w, r)
	default:
		return ArtworkCommand{}, CodedError(ErrUnsupportedContentType, http.StatusUnsupportedMediaType)
	}
}

func decodeJsonCommand(w http.ResponseWriter, r *http.Request) (ArtworkCommand, error) {
	var req artworkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJsonBodySize)).Decode(&req); err != nil {
		slog.Error("error parsing request body", "error", err)
		return ArtworkCommand{}, CodedError(errors.New("Invalid request body"), http.StatusBadRequest)
	}
	return req.command(), nil
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func decodeMultipartCommand(w http.ResponseWriter, r *http.Request) (ArtworkCommand, error) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+maxFormOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return ArtworkCommand{}, CodedError(storage.ErrUploadTooLarge, http.StatusBadRequest)
		}
		slog.Error("error parsing multipart form", "error", err)
		return ArtworkCommand{}, CodedError(errors.New("Invalid multipart form"), http.StatusBadRequest)
	}
	defer r.MultipartForm.RemoveAll()

	req := artworkRequest{
		Code:           r.FormValue("code"),
		Name:           r.FormValue("name"),
		Collection:     r.FormValue("collection"),
		Dimensions:     r.FormValue("dimensions"),
		Materials:      r.FormValue("materials"),
		Description:    r.FormValue("description"),
		ProductionDate: r.FormValue("productionDate"),
		ImageUrl:       r.FormValue("imageUrl"),
	}
	cmd := req.command()

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return cmd, nil
		}
		slog.Error("error reading image form file", "error", err)
		return ArtworkCommand{}, CodedError(errors.New("Invalid multipart form"), http.StatusBadRequest)
	}
	defer file.Close()

	// Browsers send an empty part when no file was chosen.
	if header.Size == 0 {
		return cmd, nil
	}

	blob, err := readUpload(file, header)
	if err != nil {
		return ArtworkCommand{}, err
	}
	cmd.Image = ImageInput{Upload: &blob}

	return cmd, nil
}

func readUpload(file multipart.File, header *multipart.FileHeader) (storage.Blob, error) {
	if header.Size > storage.MaxUploadSize {
		return storage.Blob{}, CodedError(storage.ErrUploadTooLarge, http.StatusBadRequest)
	}

	contentType := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	blob := storage.Blob{Filename: header.Filename, ContentType: contentType}
	if err := storage.ValidateUpload(blob); err != nil {
		return storage.Blob{}, CodedError(err, http.StatusBadRequest)
	}

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadSize+1))
	if err != nil {
		slog.Error("error reading uploaded image", "error", err)
		return storage.Blob{}, CodedError(fmt.Errorf("error reading uploaded image: %w", err), http.StatusInternalServerError)
	}
	blob.Data = data

	if err := storage.ValidateUpload(blob); err != nil {
		return storage.Blob{}, CodedError(err, http.StatusBadRequest)
	}
	return blob, nil
}
