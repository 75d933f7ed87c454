package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSharedDiskReadWrite(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	path := FilePath(uuid.New(), uuid.New(), uuid.New(), "weights.bin")
	content := []byte("some model weights")

	exists, err := store.Exists(path)
	assert.NoError(t, err)
	assert.False(t, exists)

	err = store.Write(path, bytes.NewReader(content))
	assert.NoError(t, err)

	exists, err = store.Exists(path)
	assert.NoError(t, err)
	assert.True(t, exists)

	size, err := store.Size(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	file, err := store.Read(path)
	assert.NoError(t, err)
	defer file.Close()

	read, err := io.ReadAll(file)
	assert.NoError(t, err)
	assert.Equal(t, content, read)
}

func TestSharedDiskWriteOverwrites(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	err := store.Write("a/b/file.txt", bytes.NewReader([]byte("first, longer content")))
	assert.NoError(t, err)

	err = store.Write("a/b/file.txt", bytes.NewReader([]byte("second")))
	assert.NoError(t, err)

	file, err := store.Read("a/b/file.txt")
	assert.NoError(t, err)
	defer file.Close()

	read, err := io.ReadAll(file)
	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), read)
}

func TestSharedDiskDelete(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	err := store.Write("x/y.bin", bytes.NewReader([]byte("data")))
	assert.NoError(t, err)

	err = store.Delete("x/y.bin")
	assert.NoError(t, err)

	exists, err := store.Exists("x/y.bin")
	assert.NoError(t, err)
	assert.False(t, exists)

	// Deleting an absent path is not an error.
	err = store.Delete("x/y.bin")
	assert.NoError(t, err)
}

func TestSharedDiskUsage(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	stats, err := store.Usage()
	assert.NoError(t, err)
	assert.Greater(t, stats.TotalBytes, uint64(0))
	assert.LessOrEqual(t, stats.FreeBytes, stats.TotalBytes)
}
