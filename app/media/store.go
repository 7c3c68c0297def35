// Package media stores uploaded files on the local filesystem and serves
// them back.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlogImagesDir is the subdirectory for blog post images.
const BlogImagesDir = "blog_images"

// Store saves, opens and deletes uploaded files by path relative to its root.
type Store interface {
	Save(dir string, fh *multipart.FileHeader) (string, error)
	Open(relativePath string) (io.ReadCloser, os.FileInfo, error)
	Delete(relativePath string) error
}

// LocalStorage implements Store on the local filesystem.
type LocalStorage struct {
	basePath string
	log      *zap.Logger
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(basePath string, log *zap.Logger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	log = log.With(zap.String("component", "media.store"))
	log.Info("initialized local storage", zap.String("path", absBasePath))
	return &LocalStorage{basePath: absBasePath, log: log}, nil
}

// Root returns the absolute storage root.
func (ls *LocalStorage) Root() string {
	return ls.basePath
}

// Save copies the upload into dir under a random name that keeps the
// original extension. It returns the slash-separated relative path.
func (ls *LocalStorage) Save(dir string, fh *multipart.FileHeader) (string, error) {
	targetDir, err := ls.fullPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %w", targetDir, err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload '%s': %w", fh.Filename, err)
	}
	defer src.Close()

	name, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for upload: %w", err)
	}
	filename := name.String() + strings.ToLower(filepath.Ext(fh.Filename))
	fullSavePath := filepath.Join(targetDir, filename)

	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}
	if _, err := io.Copy(outFile, src); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to close '%s': %w", fullSavePath, err)
	}

	rel, err := filepath.Rel(ls.basePath, fullSavePath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}
	rel = filepath.ToSlash(rel)
	ls.log.Info("saved upload", zap.String("path", rel), zap.String("original", fh.Filename))
	return rel, nil
}

// Open returns a reader for a stored file.
func (ls *LocalStorage) Open(relativePath string) (io.ReadCloser, os.FileInfo, error) {
	fullPath, err := ls.fullPath(relativePath)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open asset '%s': %w", relativePath, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat asset '%s': %w", relativePath, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, fmt.Errorf("asset '%s' is a directory: %w", relativePath, os.ErrNotExist)
	}
	return file, info, nil
}

// Delete removes a stored file. Missing files are not an error.
func (ls *LocalStorage) Delete(relativePath string) error {
	if relativePath == "" {
		return nil
	}
	fullPath, err := ls.fullPath(relativePath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete asset '%s': %w", relativePath, err)
	}
	if err == nil {
		ls.log.Info("deleted upload", zap.String("path", relativePath))
	}
	return nil
}

// ErrOutsideRoot is returned for paths that escape the storage root.
var ErrOutsideRoot = errors.New("path resolves outside media root")

func (ls *LocalStorage) fullPath(relativePath string) (string, error) {
	full := filepath.Join(ls.basePath, filepath.FromSlash(relativePath))
	if full != ls.basePath && !strings.HasPrefix(full, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path '%s': %w", relativePath, ErrOutsideRoot)
	}
	return full, nil
}
