package store

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GrantShare gives another user download access to an artifact. Only the
// owner may grant; for anyone else the artifact is reported as
// ErrNotFoundOrDenied. The grantee is looked up by email so that callers
// never need to know other users' ids. Must run inside a transaction.
func GrantShare(txn *gorm.DB, artifactId uuid.UUID, granteeEmail string, actorId uuid.UUID) (schema.ArtifactShare, error) {
	artifact, err := schema.GetArtifact(artifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return schema.ArtifactShare{}, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
		}
		return schema.ArtifactShare{}, err
	}
	if !auth.CanWrite(artifact, actorId) {
		return schema.ArtifactShare{}, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
	}

	grantee, err := schema.GetUserByEmail(granteeEmail, txn)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return schema.ArtifactShare{}, fmt.Errorf("%w: no user with email %q", ErrNotFound, granteeEmail)
		}
		return schema.ArtifactShare{}, err
	}

	if grantee.Id == artifact.OwnerId {
		return schema.ArtifactShare{}, fmt.Errorf("%w: cannot share an artifact with its owner", ErrValidation)
	}

	var existing schema.ArtifactShare
	result := txn.Limit(1).Find(&existing, "artifact_id = ? AND shared_with_user_id = ?", artifactId, grantee.Id)
	if result.Error != nil {
		slog.Error("sql error checking for existing share", "artifact_id", artifactId, "error", result.Error)
		return schema.ArtifactShare{}, fmt.Errorf("error checking for existing share: %w", schema.ErrDbAccessFailed)
	}
	if result.RowsAffected != 0 {
		return schema.ArtifactShare{}, fmt.Errorf("%w: artifact %v is already shared with %v", ErrConflict, artifactId, granteeEmail)
	}

	share := schema.ArtifactShare{
		Id:               uuid.New(),
		ArtifactId:       artifactId,
		SharedWithUserId: grantee.Id,
		CreatedAt:        time.Now().UTC(),
	}

	result = txn.Create(&share)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return schema.ArtifactShare{}, fmt.Errorf("%w: artifact %v is already shared with %v", ErrConflict, artifactId, granteeEmail)
		}
		slog.Error("sql error creating artifact share", "artifact_id", artifactId, "error", result.Error)
		return schema.ArtifactShare{}, fmt.Errorf("error creating share: %w", schema.ErrDbAccessFailed)
	}

	return share, nil
}

// ListShares returns the grants on an artifact. Owner only: who an artifact
// is shared with is not part of its readable metadata.
func ListShares(txn *gorm.DB, artifactId, actorId uuid.UUID) ([]schema.ArtifactShare, error) {
	artifact, err := schema.GetArtifact(artifactId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
		}
		return nil, err
	}
	if !auth.CanWrite(artifact, actorId) {
		return nil, fmt.Errorf("%w: artifact %v", ErrNotFoundOrDenied, artifactId)
	}

	var shares []schema.ArtifactShare
	result := txn.Where("artifact_id = ?", artifactId).Order("created_at desc").Find(&shares)
	if result.Error != nil {
		slog.Error("sql error listing artifact shares", "artifact_id", artifactId, "error", result.Error)
		return nil, fmt.Errorf("error listing shares: %w", schema.ErrDbAccessFailed)
	}

	return shares, nil
}
