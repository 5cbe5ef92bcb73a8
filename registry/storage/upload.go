package storage

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const MaxUploadSize = 5 * 1024 * 1024

var (
	ErrUploadTooLarge    = errors.New("File size exceeds 5MB limit")
	ErrUploadInvalidType = errors.New("Invalid file type. Only PNG and JPG are allowed")
)

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
}

var allowedExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {},
}

func IsUploadRejected(err error) bool {
	return errors.Is(err, ErrUploadTooLarge) || errors.Is(err, ErrUploadInvalidType)
}

func ValidateUpload(blob Blob) error {
	if len(blob.Data) > MaxUploadSize {
		return ErrUploadTooLarge
	}
	if _, ok := allowedImageTypes[strings.ToLower(blob.ContentType)]; !ok {
		return ErrUploadInvalidType
	}
	return nil
}

// Blob names are random so they cannot collide or be guessed from the
// original filename. The extension of the original file is kept when it is an
// allowed image extension, otherwise it is derived from the content type.
func blobName(blob Blob) string {
	ext := strings.ToLower(filepath.Ext(blob.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		ext = allowedImageTypes[strings.ToLower(blob.ContentType)]
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}
