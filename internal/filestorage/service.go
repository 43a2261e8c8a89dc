// File: internal/filestorage/service.go
package filestorage

import (
	"bytes"
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

// ErrInvalidPath is returned for relative paths that escape the storage root.
var ErrInvalidPath = errors.New("invalid file path")

// extensionsByType maps accepted upload content types to the stored extension.
var extensionsByType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// FileStorageService stores uploads (product images, supplier invoices) on
// the local disk under a single root directory served at /files.
type FileStorageService struct {
	storagePath string
	logger      *zap.Logger
}

// NewFileStorageService creates the storage root when missing.
func NewFileStorageService(storagePath string, logger *zap.Logger) (*FileStorageService, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	logger.Info("FileStorageService initialized", zap.String("storagePath", storagePath))
	return &FileStorageService{storagePath: storagePath, logger: logger}, nil
}

// Root returns the storage root directory.
func (s *FileStorageService) Root() string { return s.storagePath }

// Resolve turns a stored relative path into an absolute path inside the
// storage root, rejecting anything that would escape it.
func (s *FileStorageService) Resolve(relativePath string) (string, error) {
	if relativePath == "" || filepath.IsAbs(relativePath) {
		return "", ErrInvalidPath
	}
	root, err := filepath.Abs(s.storagePath)
	if err != nil {
		return "", fmt.Errorf("resolving storage root: %w", err)
	}
	full := filepath.Join(root, filepath.FromSlash(relativePath))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func extensionFor(fileHeader *multipart.FileHeader) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(fileHeader.Header.Get("Content-Type"), ";")[0]))
	if ext, ok := extensionsByType[contentType]; ok {
		return ext, nil
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for _, allowed := range extensionsByType {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", fmt.Errorf("unsupported file type or missing extension: %s", contentType)
}

// SaveUploadedFile stores the upload as <subDir>/<uuid><ext> and returns that
// relative path with forward slashes.
func (s *FileStorageService) SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}
	ext, err := extensionFor(fileHeader)
	if err != nil {
		return "", err
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return s.save(src, subDir, ext)
}

// SaveBytes stores generated content, such as a rendered PDF, the same way uploads are stored.
func (s *FileStorageService) SaveBytes(data []byte, subDir, ext string) (string, error) {
	return s.save(bytes.NewReader(data), subDir, ext)
}

func (s *FileStorageService) save(src io.Reader, subDir, ext string) (string, error) {
	relative := filepath.ToSlash(filepath.Join(filepath.Clean(subDir), uuid.NewString()+ext))
	destination, err := s.Resolve(relative)
	if err != nil {
		s.logger.Error("Invalid storage sub-directory", zap.String("subDir", subDir))
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", relative, err)
	}

	dst, err := os.Create(destination)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destination), zap.Error(err))
		return "", fmt.Errorf("failed to create file %s: %w", relative, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(destination)
		s.logger.Error("Failed to write file", zap.String("path", destination), zap.Error(err))
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destination)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("File saved successfully", zap.String("path", relative))
	return relative, nil
}

// Open returns a reader for a stored file.
func (s *FileStorageService) Open(relativePath string) (*os.File, error) {
	full, err := s.Resolve(relativePath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// DeleteFile removes a stored file. Missing files are not an error.
func (s *FileStorageService) DeleteFile(relativePath string) error {
	full, err := s.Resolve(relativePath)
	if err != nil {
		s.logger.Warn("Attempt to delete file with path traversal", zap.String("relativePath", relativePath))
		return fmt.Errorf("invalid file path for deletion: %w", err)
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Attempt to delete non-existent file", zap.String("path", relativePath))
			return nil
		}
		s.logger.Error("Failed to delete file", zap.String("path", relativePath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", relativePath, err)
	}
	s.logger.Info("File deleted successfully", zap.String("path", relativePath))
	return nil
}
