package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateVersion inserts a new immutable version under an artifact. Only the
// artifact's owner may create versions; a missing artifact and a foreign
// artifact produce the same ErrNotFoundOrDenied so that non-owners learn
// nothing about what exists. Must run inside a transaction: the duplicate
// check and insert form one verify-then-insert scope, with the composite
// unique index backstopping concurrent creators.
func CreateVersion(txn *gorm.DB, artifactId uuid.UUID, version, changelog string, actorId uuid.UUID) (schema.ArtifactVersion, error) {
	if strings.TrimSpace(version) == "" {
		return schema.ArtifactVersion{}, fmt.Errorf("%w: version must not be empty", ErrValidation)
	}

	artifact, err := schema.GetArtifact(artifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return schema.ArtifactVersion{}, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
		}
		return schema.ArtifactVersion{}, err
	}
	if !auth.CanWrite(artifact, actorId) {
		return schema.ArtifactVersion{}, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
	}

	var existing schema.ArtifactVersion
	result := txn.Limit(1).Find(&existing, "artifact_id = ? AND version = ?", artifactId, version)
	if result.Error != nil {
		slog.Error("sql error checking for duplicate version", "artifact_id", artifactId, "error", result.Error)
		return schema.ArtifactVersion{}, fmt.Errorf("error checking for duplicate version: %w", schema.ErrDbAccessFailed)
	}
	if result.RowsAffected != 0 {
		return schema.ArtifactVersion{}, fmt.Errorf("%w: version %q for artifact %v", ErrConflict, version, artifactId)
	}

	newVersion := schema.ArtifactVersion{
		Id:         uuid.New(),
		ArtifactId: artifactId,
		Version:    version,
		Changelog:  changelog,
		CreatedAt:  time.Now().UTC(),
	}

	result = txn.Create(&newVersion)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return schema.ArtifactVersion{}, fmt.Errorf("%w: version %q for artifact %v", ErrConflict, version, artifactId)
		}
		slog.Error("sql error creating artifact version", "artifact_id", artifactId, "error", result.Error)
		return schema.ArtifactVersion{}, fmt.Errorf("error creating version: %w", schema.ErrDbAccessFailed)
	}

	return newVersion, nil
}

// ListVersions returns an artifact's versions, most recent first. Unlike
// CreateVersion this is a read path: a missing artifact is reported as such,
// and any reader (owner, share target, or anyone for PUBLIC) may list.
func ListVersions(txn *gorm.DB, artifactId, actorId uuid.UUID) ([]schema.ArtifactVersion, error) {
	artifact, err := schema.GetArtifact(artifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w: artifact %v", ErrNotFound, artifactId)
		}
		return nil, err
	}

	shares, err := schema.GetArtifactShares(artifactId, txn)
	if err != nil {
		return nil, err
	}
	if !auth.CanRead(artifact, shares, actorId) {
		return nil, fmt.Errorf("%w: artifact %v", ErrAccessDenied, artifactId)
	}

	var versions []schema.ArtifactVersion
	result := txn.Where("artifact_id = ?", artifactId).Order("created_at desc").Find(&versions)
	if result.Error != nil {
		slog.Error("sql error listing artifact versions", "artifact_id", artifactId, "error", result.Error)
		return nil, fmt.Errorf("error listing versions: %w", schema.ErrDbAccessFailed)
	}

	return versions, nil
}
