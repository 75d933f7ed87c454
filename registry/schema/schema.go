package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ArtifactType string

const (
	ModelArtifact     ArtifactType = "MODEL"
	DatasetArtifact   ArtifactType = "DATASET"
	EmbeddingArtifact ArtifactType = "EMBEDDING"
	RunArtifact       ArtifactType = "RUN"
	PaperArtifact     ArtifactType = "PAPER"
)

func CheckValidArtifactType(t ArtifactType) error {
	switch t {
	case ModelArtifact, DatasetArtifact, EmbeddingArtifact, RunArtifact, PaperArtifact:
		return nil
	}
	return fmt.Errorf("invalid artifact type '%v'", t)
}

type Visibility string

const (
	Public  Visibility = "PUBLIC"
	Shared  Visibility = "SHARED"
	Private Visibility = "PRIVATE"
)

func CheckValidVisibility(v Visibility) error {
	switch v {
	case Public, Shared, Private:
		return nil
	}
	return fmt.Errorf("invalid visibility '%v'", v)
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null;default:false"`

	Artifacts []Artifact `gorm:"foreignKey:OwnerId"`
}

type Artifact struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerId uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner   *User     `gorm:"foreignKey:OwnerId"`

	Title       string       `gorm:"size:200;not null"`
	Type        ArtifactType `gorm:"size:50;not null"`
	Description string

	Visibility Visibility `gorm:"size:50;not null;default:'PRIVATE'"`

	CreatedAt time.Time

	Versions []ArtifactVersion `gorm:"foreignKey:ArtifactId;constraint:OnDelete:CASCADE"`
	Shares   []ArtifactShare   `gorm:"foreignKey:ArtifactId;constraint:OnDelete:CASCADE"`
}

type ArtifactVersion struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ArtifactId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_version"`
	Version    string    `gorm:"size:100;not null;uniqueIndex:idx_artifact_version"`
	Changelog  string

	CreatedAt time.Time

	Files []ArtifactFile `gorm:"foreignKey:VersionId;constraint:OnDelete:CASCADE"`
}

type ArtifactFile struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	VersionId uuid.UUID `gorm:"type:uuid;not null;index"`
	OwnerId   uuid.UUID `gorm:"type:uuid;not null"`

	// Filename carries the random collision token assigned at upload, e.g.
	// "5f3a..._weights.bin". Use DisplayName for the name the uploader gave.
	Filename    string `gorm:"size:300;not null"`
	ContentType string `gorm:"size:100;not null"`
	SizeBytes   int64  `gorm:"not null"`
	StoragePath string `gorm:"size:500;not null"`

	CreatedAt time.Time
}

// DisplayName strips the upload collision token from the stored filename.
func (f *ArtifactFile) DisplayName() string {
	token, rest, found := strings.Cut(f.Filename, "_")
	if !found {
		return f.Filename
	}
	if _, err := uuid.Parse(token); err != nil {
		return f.Filename
	}
	return rest
}

type ArtifactShare struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ArtifactId       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_share"`
	SharedWithUserId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_share"`

	CreatedAt time.Time
}
