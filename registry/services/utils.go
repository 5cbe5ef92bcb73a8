package services

import (
	"errors"
	"log/slog"
	"mossi_registry/registry/schema"
	"mossi_registry/registry/storage"
	"mossi_registry/utils"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"gorm.io/gorm"
)

var (
	ErrCodeAlreadyExists = errors.New("An artwork with this code already exists")
	ErrInvalidArtworkId  = errors.New("Invalid artwork ID")
	ErrMissingImageField = errors.New("Code, name, and image URL are required")
	ErrMissingFields     = errors.New("Code and name are required")
	ErrInvalidImageUrl   = errors.New("Image URL must be an absolute http(s) URL or a path starting with /")
	ErrMissingCode       = errors.New("Code parameter is required")
	ErrInvalidPage       = errors.New("page must be a positive integer")
	ErrInvalidLimit      = errors.New("limit must be between 1 and 100")
	ErrInsufficientDisk  = errors.New("Insufficient storage available for uploads")

	errInternal = errors.New("Internal server error")
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// Server errors are reported with a generic message, the details are logged
// where the error occurred.
func writeError(w http.ResponseWriter, err error) {
	code := GetResponseCode(err)
	if code >= http.StatusInternalServerError {
		utils.WriteJsonError(w, errInternal.Error(), code)
		return
	}
	utils.WriteJsonError(w, err.Error(), code)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// Maps an error from an insert or update of an artwork. Unique violations can
// only come from the code index, and happen when a concurrent write claimed the
// code after the pre-check.
func artworkWriteError(err error, action string) error {
	if isUniqueViolation(err) {
		return CodedError(ErrCodeAlreadyExists, http.StatusBadRequest)
	}
	slog.Error("sql error "+action, "error", err)
	return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
}

func lookupError(err error) error {
	if errors.Is(err, schema.ErrArtworkNotFound) {
		return CodedError(schema.ErrArtworkNotFound, http.StatusNotFound)
	}
	return CodedError(err, http.StatusInternalServerError)
}

// Rejects uploads when the disk holding the blob store is close to full.
const minFreeUploadBytes = 64 * 1024 * 1024

func checkDiskUsage(blobs storage.BlobStore) error {
	reporter, ok := blobs.(storage.UsageReporter)
	if !ok {
		return nil
	}

	usage, err := reporter.Usage()
	if err != nil {
		return CodedError(err, http.StatusInternalServerError)
	}

	if usage.FreeBytes < minFreeUploadBytes {
		slog.Error("insufficient disk space for uploads", "free_mib", usage.FreeBytes/(1<<20), "total_mib", usage.TotalBytes/(1<<20))
		return CodedError(ErrInsufficientDisk, http.StatusInsufficientStorage)
	}
	return nil
}

func checkSufficientStorage(blobs storage.BlobStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		handler := func(w http.ResponseWriter, r *http.Request) {
			if err := checkDiskUsage(blobs); err != nil {
				code := GetResponseCode(err)
				if code == http.StatusInsufficientStorage {
					utils.WriteJsonError(w, err.Error(), code)
					return
				}
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(handler)
	}
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// Per client ip limit over a one minute window, nil when limit is 0.
func rateLimit(limit int, trustProxyHeaders bool) func(http.Handler) http.Handler {
	if limit <= 0 {
		return nil
	}
	if trustProxyHeaders {
		return httprate.LimitByRealIP(limit, time.Minute)
	}
	return httprate.LimitByIP(limit, time.Minute)
}
