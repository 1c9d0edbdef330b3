package filestorage

import (
	"errors"
	"mime/multipart"
)

// ErrUnsupportedType is returned for uploads whose extension is not an allowed image type
var ErrUnsupportedType = errors.New("unsupported file type")

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// SaveFileWithPath stores the upload under subPath and returns its public URL
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a file previously returned by SaveFileWithPath.
	// URLs that do not belong to this storage are ignored.
	DeleteFile(fileURL string) error

	// GetFullPath returns the filesystem path for a URL returned by SaveFileWithPath
	GetFullPath(fileURL string) string
}
