package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrVersionNotFound  = errors.New("artifact version not found")
	ErrFileNotFound     = errors.New("artifact file not found")
	ErrDbAccessFailed   = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetUserByEmail(email string, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by email", "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetArtifact(artifactId uuid.UUID, db *gorm.DB) (Artifact, error) {
	var artifact Artifact

	result := db.First(&artifact, "id = ?", artifactId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return artifact, ErrArtifactNotFound
		}
		slog.Error("sql error in get artifact", "artifact_id", artifactId, "error", result.Error)
		return artifact, ErrDbAccessFailed
	}

	return artifact, nil
}

func GetVersion(versionId uuid.UUID, db *gorm.DB) (ArtifactVersion, error) {
	var version ArtifactVersion

	result := db.First(&version, "id = ?", versionId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return version, ErrVersionNotFound
		}
		slog.Error("sql error in get artifact version", "version_id", versionId, "error", result.Error)
		return version, ErrDbAccessFailed
	}

	return version, nil
}

func GetFile(fileId uuid.UUID, db *gorm.DB) (ArtifactFile, error) {
	var file ArtifactFile

	result := db.First(&file, "id = ?", fileId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return file, ErrFileNotFound
		}
		slog.Error("sql error in get artifact file", "file_id", fileId, "error", result.Error)
		return file, ErrDbAccessFailed
	}

	return file, nil
}

func GetArtifactShares(artifactId uuid.UUID, db *gorm.DB) ([]ArtifactShare, error) {
	var shares []ArtifactShare

	result := db.Find(&shares, "artifact_id = ?", artifactId)
	if result.Error != nil {
		slog.Error("sql error in get artifact shares", "artifact_id", artifactId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}

	return shares, nil
}
