package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Kind groups stored files into one subdirectory per purpose
type Kind string

const (
	KindImport Kind = "imports"
)

// ErrNotFound is returned when a stored file does not exist
var ErrNotFound = errors.New("stored file not found")

// Store defines the interface for saving and retrieving uploaded files
type Store interface {
	// Save stores data under the kind's directory and returns the relative path used
	Save(kind Kind, filename string, data io.Reader) (string, error)
	// Get retrieves a reader for a stored file
	Get(relativePath string) (*os.File, os.FileInfo, error)
	// Delete removes a stored file
	Delete(relativePath string) error
}

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath string // absolute path to UPLOAD_STORAGE_PATH
	logger   *zap.Logger
}

// NewLocalStorage creates a new local filesystem store
func NewLocalStorage(basePath string, log *zap.Logger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	log.Info("upload storage initialized", zap.String("path", absBasePath))
	return &LocalStorage{basePath: absBasePath, logger: log.Named("uploads")}, nil
}

// Save copies data to <base>/<kind>/<filename>. A failed copy leaves no file behind.
func (ls *LocalStorage) Save(kind Kind, filename string, data io.Reader) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid filename '%s'", filename)
	}

	dir, err := ls.GetFullPath(string(kind))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure directory '%s': %w", dir, err)
	}

	fullSavePath := filepath.Join(dir, filename)
	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to close '%s': %w", fullSavePath, err)
	}

	relativePath, err := filepath.Rel(ls.basePath, fullSavePath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}

	ls.logger.Debug("saved upload", zap.String("path", fullSavePath))
	return filepath.ToSlash(relativePath), nil
}

func (ls *LocalStorage) Get(relativePath string) (*os.File, os.FileInfo, error) {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: '%s'", ErrNotFound, relativePath)
		}
		return nil, nil, fmt.Errorf("failed to open stored file '%s': %w", relativePath, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat stored file '%s': %w", relativePath, err)
	}
	return file, info, nil
}

// Delete removes a stored file; a missing file is not an error
func (ls *LocalStorage) Delete(relativePath string) error {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored file '%s': %w", relativePath, err)
	}
	return nil
}

// GetFullPath calculates the absolute path and rejects paths outside the base directory
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	fullPath := filepath.Join(ls.basePath, filepath.Clean("/"+relativePath))
	if fullPath != ls.basePath && !strings.HasPrefix(fullPath, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return fullPath, nil
}
