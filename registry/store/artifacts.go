package store

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"artifact_registry/registry/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateArtifact inserts a new artifact owned by ownerId. There is no
// uniqueness constraint on titles, so creation cannot conflict.
func CreateArtifact(txn *gorm.DB, ownerId uuid.UUID, title string, artifactType schema.ArtifactType, description string, visibility schema.Visibility) (schema.Artifact, error) {
	if strings.TrimSpace(title) == "" {
		return schema.Artifact{}, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if err := schema.CheckValidArtifactType(artifactType); err != nil {
		return schema.Artifact{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := schema.CheckValidVisibility(visibility); err != nil {
		return schema.Artifact{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	artifact := schema.Artifact{
		Id:          uuid.New(),
		OwnerId:     ownerId,
		Title:       title,
		Type:        artifactType,
		Description: description,
		Visibility:  visibility,
		CreatedAt:   time.Now().UTC(),
	}

	result := txn.Create(&artifact)
	if result.Error != nil {
		slog.Error("sql error creating artifact", "owner_id", ownerId, "error", result.Error)
		return schema.Artifact{}, fmt.Errorf("error creating artifact: %w", schema.ErrDbAccessFailed)
	}

	return artifact, nil
}

// ListArtifactsByOwner returns the user's own artifacts, most recent first.
func ListArtifactsByOwner(txn *gorm.DB, ownerId uuid.UUID) ([]schema.Artifact, error) {
	var artifacts []schema.Artifact

	result := txn.Where("owner_id = ?", ownerId).Order("created_at desc").Find(&artifacts)
	if result.Error != nil {
		slog.Error("sql error listing artifacts by owner", "owner_id", ownerId, "error", result.Error)
		return nil, fmt.Errorf("error listing artifacts: %w", schema.ErrDbAccessFailed)
	}

	return artifacts, nil
}

// ListVisibleArtifacts returns every artifact the user may read: their own,
// those shared with them, and public ones. Most recent first.
func ListVisibleArtifacts(txn *gorm.DB, userId uuid.UUID) ([]schema.Artifact, error) {
	var artifacts []schema.Artifact

	sharedWith := txn.Model(&schema.ArtifactShare{}).
		Select("artifact_id").
		Where("shared_with_user_id = ?", userId)

	result := txn.
		Where("visibility = ?", schema.Public).
		Or("owner_id = ?", userId).
		Or("id IN (?)", sharedWith).
		Order("created_at desc").
		Find(&artifacts)

	if result.Error != nil {
		slog.Error("sql error listing visible artifacts", "user_id", userId, "error", result.Error)
		return nil, fmt.Errorf("error listing artifacts: %w", schema.ErrDbAccessFailed)
	}

	return artifacts, nil
}
