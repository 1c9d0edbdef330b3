package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// DefaultImageExtensions are the uploads accepted for item pictures
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath   string // The root directory where files will be stored
	baseURL    string // URL prefix under which basePath is served
	extensions map[string]bool
}

// NewLocalStorage creates a new LocalStorage instance.
// basePath is the required directory path on the server; baseURL is the prefix
// the router serves it under (for example "/uploads").
func NewLocalStorage(basePath, baseURL string, allowedExtensions ...string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultImageExtensions
	}
	exts := make(map[string]bool, len(allowedExtensions))
	for _, e := range allowedExtensions {
		exts[strings.ToLower(e)] = true
	}

	return &LocalStorage{
		basePath:   basePath,
		baseURL:    strings.TrimRight(baseURL, "/"),
		extensions: exts,
	}, nil
}

// SaveFileWithPath saves a file to a specified subdirectory
func (ls *LocalStorage) SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("no file uploaded")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !ls.extensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	subPath = strings.Trim(path.Clean("/"+filepath.ToSlash(subPath)), "/")
	fullDirPath := filepath.Join(ls.basePath, filepath.FromSlash(subPath))
	if err := os.MkdirAll(fullDirPath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", fullDirPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	// Generate a unique filename to prevent collisions
	uniqueFilename := uuid.New().String() + ext
	dstPath := filepath.Join(fullDirPath, uniqueFilename)

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	accessiblePath := ls.baseURL + "/" + path.Join(subPath, uniqueFilename)

	logger.Info().Str("filename", fileHeader.Filename).Str("saved_as", uniqueFilename).Str("accessible_path", accessiblePath).Msg("File saved successfully")
	return accessiblePath, nil
}

// relativePath maps a URL produced by SaveFileWithPath back to a path under basePath
func (ls *LocalStorage) relativePath(fileURL string) (string, bool) {
	prefix := ls.baseURL + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return "", false
	}

	rel := path.Clean("/" + strings.TrimPrefix(fileURL, prefix))
	rel = strings.TrimLeft(rel, "/")
	if rel == "" || rel == "." {
		return "", false
	}
	return filepath.FromSlash(rel), true
}

// DeleteFile removes a file from the storage filesystem.
// Returns nil if the file doesn't exist or lives elsewhere.
func (ls *LocalStorage) DeleteFile(fileURL string) error {
	if fileURL == "" {
		return nil
	}

	physicalPath := ls.GetFullPath(fileURL)
	if physicalPath == "" {
		logger.Debug().Str("url", fileURL).Msg("Not a locally stored file, skipping delete")
		return nil
	}

	if _, err := os.Stat(physicalPath); os.IsNotExist(err) {
		logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
		return nil
	}

	if err := os.Remove(physicalPath); err != nil {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath returns the full filesystem path for a given file URL, or "" if
// the URL was not produced by this storage.
func (ls *LocalStorage) GetFullPath(fileURL string) string {
	rel, ok := ls.relativePath(fileURL)
	if !ok {
		return ""
	}
	return filepath.Join(ls.basePath, rel)
}
