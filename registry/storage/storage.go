package storage

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Size(path string) (int64, error)

	Usage() (UsageStats, error)

	Location() string
}

// FilePath returns the location of a file blob relative to the storage root.
// The final path component must already carry its collision token.
func FilePath(ownerId, artifactId, versionId uuid.UUID, name string) string {
	return filepath.Join(
		fmt.Sprintf("user_%v", ownerId),
		fmt.Sprintf("artifact_%v", artifactId),
		fmt.Sprintf("version_%v", versionId),
		name,
	)
}
