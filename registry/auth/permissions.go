package auth

import (
	"artifact_registry/registry/schema"

	"github.com/google/uuid"
)

type artifactPermission int // Private so that no other permissions can be defined

const (
	NoPermission       artifactPermission = 0
	ReadPermission     artifactPermission = 1
	DownloadPermission artifactPermission = 2
	OwnerPermission    artifactPermission = 3
)

func (perm artifactPermission) String() string {
	switch perm {
	case NoPermission:
		return "None"
	case ReadPermission:
		return "Read"
	case DownloadPermission:
		return "Download"
	case OwnerPermission:
		return "Owner"
	default:
		return "invalid permission"
	}
}

// ArtifactPermission decides what a user may do with an artifact. It is pure:
// the caller resolves the artifact and its shares first, typically inside the
// same transaction as the operation being guarded.
//
// PUBLIC visibility grants metadata read only; downloading file bytes always
// requires ownership or an explicit share.
func ArtifactPermission(artifact schema.Artifact, shares []schema.ArtifactShare, userId uuid.UUID) artifactPermission {
	if artifact.OwnerId == userId {
		return OwnerPermission
	}

	for _, share := range shares {
		if share.ArtifactId == artifact.Id && share.SharedWithUserId == userId {
			return DownloadPermission
		}
	}

	switch artifact.Visibility {
	case schema.Public:
		return ReadPermission
	case schema.Shared, schema.Private:
		return NoPermission
	}

	return NoPermission
}

func CanRead(artifact schema.Artifact, shares []schema.ArtifactShare, userId uuid.UUID) bool {
	return ArtifactPermission(artifact, shares, userId) >= ReadPermission
}

func CanDownload(artifact schema.Artifact, shares []schema.ArtifactShare, userId uuid.UUID) bool {
	return ArtifactPermission(artifact, shares, userId) >= DownloadPermission
}

// CanWrite needs no share grants: only the owner may mutate an artifact.
func CanWrite(artifact schema.Artifact, userId uuid.UUID) bool {
	return artifact.OwnerId == userId
}
