package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"
	"artifact_registry/registry/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultContentType = "application/octet-stream"

// resolveFileChain walks file -> version -> artifact, loading the artifact's
// shares for the permission decision. Any missing link yields ErrNotFound.
func resolveFileChain(txn *gorm.DB, fileId uuid.UUID) (schema.ArtifactFile, schema.Artifact, []schema.ArtifactShare, error) {
	file, err := schema.GetFile(fileId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrFileNotFound) {
			return schema.ArtifactFile{}, schema.Artifact{}, nil, fmt.Errorf("%w: file %v", ErrNotFound, fileId)
		}
		return schema.ArtifactFile{}, schema.Artifact{}, nil, err
	}

	version, err := schema.GetVersion(file.VersionId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrVersionNotFound) {
			return schema.ArtifactFile{}, schema.Artifact{}, nil, fmt.Errorf("%w: version %v", ErrNotFound, file.VersionId)
		}
		return schema.ArtifactFile{}, schema.Artifact{}, nil, err
	}

	artifact, err := schema.GetArtifact(version.ArtifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return schema.ArtifactFile{}, schema.Artifact{}, nil, fmt.Errorf("%w: artifact %v", ErrNotFound, version.ArtifactId)
		}
		return schema.ArtifactFile{}, schema.Artifact{}, nil, err
	}

	shares, err := schema.GetArtifactShares(artifact.Id, txn)
	if err != nil {
		return schema.ArtifactFile{}, schema.Artifact{}, nil, err
	}

	return file, artifact, shares, nil
}

// UploadFile attaches a new blob to a version. Upload is owner-only: shares
// grant read/download, never write. The blob is written before the metadata
// row is committed; if the commit fails the blob is removed again so that no
// record ever points at bytes that were not fully stored, and no stored bytes
// outlive a failed upload.
func UploadFile(db *gorm.DB, store storage.Storage, versionId, actorId uuid.UUID, data io.Reader, originalFilename, contentType string) (schema.ArtifactFile, error) {
	if originalFilename == "" {
		originalFilename = "unnamed_file"
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	var file schema.ArtifactFile
	var path string
	blobWritten := false

	err := db.Transaction(func(txn *gorm.DB) error {
		version, err := schema.GetVersion(versionId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrVersionNotFound) {
				return fmt.Errorf("%w: version %v", ErrNotFoundOrDenied, versionId)
			}
			return err
		}

		artifact, err := schema.GetArtifact(version.ArtifactId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrArtifactNotFound) {
				return fmt.Errorf("%w: version %v", ErrNotFoundOrDenied, versionId)
			}
			return err
		}

		if !auth.CanWrite(artifact, actorId) {
			return fmt.Errorf("%w: version %v", ErrNotFoundOrDenied, versionId)
		}

		// The random token makes concurrent uploads of the same filename land
		// on distinct paths.
		name := fmt.Sprintf("%v_%v", uuid.New(), filepath.Base(originalFilename))
		path = storage.FilePath(artifact.OwnerId, artifact.Id, version.Id, name)

		if err := store.Write(path, data); err != nil {
			return fmt.Errorf("error storing file contents: %w", err)
		}
		blobWritten = true

		size, err := store.Size(path)
		if err != nil {
			return fmt.Errorf("error reading stored file size: %w", err)
		}

		file = schema.ArtifactFile{
			Id:          uuid.New(),
			VersionId:   version.Id,
			OwnerId:     artifact.OwnerId,
			Filename:    name,
			ContentType: contentType,
			SizeBytes:   size,
			StoragePath: path,
			CreatedAt:   time.Now().UTC(),
		}

		result := txn.Create(&file)
		if result.Error != nil {
			slog.Error("sql error creating artifact file", "version_id", versionId, "error", result.Error)
			return fmt.Errorf("error saving file record: %w", schema.ErrDbAccessFailed)
		}

		return nil
	})

	if err != nil {
		if blobWritten {
			if delErr := store.Delete(path); delErr != nil {
				slog.Error("error removing blob after failed upload", "path", path, "error", delErr)
				return schema.ArtifactFile{}, fmt.Errorf("%w: blob %v orphaned by failed upload", ErrStorageInconsistency, path)
			}
		}
		return schema.ArtifactFile{}, err
	}

	return file, nil
}

// GetFile resolves a file for download. Requires download permission, and
// verifies the blob actually exists before handing out the record.
func GetFile(txn *gorm.DB, store storage.Storage, fileId, actorId uuid.UUID) (schema.ArtifactFile, error) {
	file, artifact, shares, err := resolveFileChain(txn, fileId)
	if err != nil {
		return schema.ArtifactFile{}, err
	}

	if !auth.CanDownload(artifact, shares, actorId) {
		return schema.ArtifactFile{}, fmt.Errorf("%w: file %v", ErrAccessDenied, fileId)
	}

	exists, err := store.Exists(file.StoragePath)
	if err != nil {
		return schema.ArtifactFile{}, fmt.Errorf("error checking stored file: %w", err)
	}
	if !exists {
		return schema.ArtifactFile{}, fmt.Errorf("%w: blob missing for file %v at %v", ErrStorageInconsistency, fileId, file.StoragePath)
	}

	return file, nil
}

// ListFilesForVersion returns every file attached to a version, most recent
// first. Scoped by read access to the owning artifact, not by uploader, so a
// shared reader sees the same listing the owner does.
func ListFilesForVersion(txn *gorm.DB, versionId, actorId uuid.UUID) ([]schema.ArtifactFile, error) {
	version, err := schema.GetVersion(versionId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrVersionNotFound) {
			return nil, fmt.Errorf("%w: version %v", ErrNotFound, versionId)
		}
		return nil, err
	}

	artifact, err := schema.GetArtifact(version.ArtifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w: artifact %v", ErrNotFound, version.ArtifactId)
		}
		return nil, err
	}

	shares, err := schema.GetArtifactShares(artifact.Id, txn)
	if err != nil {
		return nil, err
	}
	if !auth.CanRead(artifact, shares, actorId) {
		return nil, fmt.Errorf("%w: version %v", ErrAccessDenied, versionId)
	}

	var files []schema.ArtifactFile
	result := txn.Where("version_id = ?", versionId).Order("created_at desc").Find(&files)
	if result.Error != nil {
		slog.Error("sql error listing files for version", "version_id", versionId, "error", result.Error)
		return nil, fmt.Errorf("error listing files: %w", schema.ErrDbAccessFailed)
	}

	return files, nil
}

// DeleteFile removes a file's blob and its metadata row. Deletion is a write
// operation: a shared user can download a file but must never be able to
// destroy it. The blob goes first; if removing it fails the metadata row is
// kept so the leaked blob stays discoverable.
func DeleteFile(db *gorm.DB, store storage.Storage, fileId, actorId uuid.UUID) error {
	return db.Transaction(func(txn *gorm.DB) error {
		file, artifact, _, err := resolveFileChain(txn, fileId)
		if err != nil {
			return err
		}

		if !auth.CanWrite(artifact, actorId) {
			return fmt.Errorf("%w: file %v", ErrAccessDenied, fileId)
		}

		if err := store.Delete(file.StoragePath); err != nil {
			slog.Error("error deleting blob for file", "file_id", fileId, "path", file.StoragePath, "error", err)
			return fmt.Errorf("%w: blob %v could not be deleted", ErrStorageInconsistency, file.StoragePath)
		}

		result := txn.Delete(&file)
		if result.Error != nil {
			slog.Error("sql error deleting artifact file", "file_id", fileId, "error", result.Error)
			return fmt.Errorf("error deleting file record: %w", schema.ErrDbAccessFailed)
		}

		return nil
	})
}
