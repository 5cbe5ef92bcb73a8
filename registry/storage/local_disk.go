package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mossi_registry/utils/logging"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sys/unix"
)

type LocalDiskStore struct {
	basepath string
}

func NewLocalDisk(basepath string) (*LocalDiskStore, error) {
	if basepath == "" {
		return nil, errors.New("upload directory must be specified for local blob storage")
	}
	if err := os.MkdirAll(basepath, 0755); err != nil {
		slog.Error("error creating upload directory", "path", basepath, "error", err, "code", logging.BLOB_STORE)
		return nil, fmt.Errorf("error creating upload directory: %w", err)
	}
	slog.Info("using local disk blob storage", "path", basepath, "code", logging.BLOB_STORE)
	return &LocalDiskStore{basepath: basepath}, nil
}

func (s *LocalDiskStore) Path() string {
	return s.basepath
}

func (s *LocalDiskStore) fullpath(name string) string {
	return filepath.Join(s.basepath, name)
}

func (s *LocalDiskStore) Put(ctx context.Context, blob Blob) (string, error) {
	if err := ValidateUpload(blob); err != nil {
		return "", err
	}

	name := blobName(blob)
	fullpath := s.fullpath(name)

	file, err := os.OpenFile(fullpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		slog.Error("error opening blob file", "path", fullpath, "error", err, "code", logging.BLOB_STORE)
		return "", fmt.Errorf("error opening blob file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, bytes.NewReader(blob.Data)); err != nil {
		slog.Error("error writing blob file", "path", fullpath, "error", err, "code", logging.BLOB_STORE)
		_ = os.Remove(fullpath)
		return "", fmt.Errorf("error writing blob file: %w", err)
	}

	return path.Join(UploadsPath, name), nil
}

// Only references that were produced by Put are removed, anything else (for
// example an external image url) is ignored.
func (s *LocalDiskStore) Delete(ctx context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, UploadsPath+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil
	}

	if err := os.Remove(s.fullpath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("error deleting blob file", "ref", ref, "error", err, "code", logging.BLOB_STORE)
		return fmt.Errorf("error deleting blob file: %w", err)
	}
	return nil
}

func (s *LocalDiskStore) Exists(ref string) (bool, error) {
	name, ok := strings.CutPrefix(ref, UploadsPath+"/")
	if !ok {
		return false, nil
	}
	_, err := os.Stat(s.fullpath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalDiskStore) Usage() (DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.basepath, &stat); err != nil {
		slog.Error("error getting disk usage", "error", err, "code", logging.BLOB_STORE)
		return DiskUsage{}, fmt.Errorf("error getting disk usage: %w", err)
	}

	return DiskUsage{
		TotalBytes: stat.Blocks * uint64(stat.Bsize),
		FreeBytes:  stat.Bavail * uint64(stat.Bsize),
	}, nil
}

// Serves stored blobs. The router expects to be mounted at UploadsPath.
func (s *LocalDiskStore) Routes() chi.Router {
	r := chi.NewRouter()

	files := http.StripPrefix(UploadsPath, http.FileServer(http.Dir(s.basepath)))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})

	return r
}

func (s *LocalDiskStore) Type() string {
	return "local"
}
