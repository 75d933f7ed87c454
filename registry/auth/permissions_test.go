package auth

import (
	"testing"

	"artifact_registry/registry/schema"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestArtifactPermission(t *testing.T) {
	owner := uuid.New()
	grantee := uuid.New()
	stranger := uuid.New()

	artifact := schema.Artifact{Id: uuid.New(), OwnerId: owner, Visibility: schema.Private}
	shares := []schema.ArtifactShare{
		{Id: uuid.New(), ArtifactId: artifact.Id, SharedWithUserId: grantee},
	}

	assert.Equal(t, OwnerPermission, ArtifactPermission(artifact, shares, owner))
	assert.Equal(t, DownloadPermission, ArtifactPermission(artifact, shares, grantee))
	assert.Equal(t, NoPermission, ArtifactPermission(artifact, shares, stranger))

	artifact.Visibility = schema.Shared
	assert.Equal(t, NoPermission, ArtifactPermission(artifact, shares, stranger))

	artifact.Visibility = schema.Public
	assert.Equal(t, ReadPermission, ArtifactPermission(artifact, shares, stranger))
	// A share never lowers permission below what visibility grants.
	assert.Equal(t, DownloadPermission, ArtifactPermission(artifact, shares, grantee))
	assert.Equal(t, OwnerPermission, ArtifactPermission(artifact, shares, owner))
}

func TestShareForOtherArtifactDoesNotGrant(t *testing.T) {
	owner := uuid.New()
	grantee := uuid.New()

	artifact := schema.Artifact{Id: uuid.New(), OwnerId: owner, Visibility: schema.Private}
	shares := []schema.ArtifactShare{
		{Id: uuid.New(), ArtifactId: uuid.New(), SharedWithUserId: grantee},
	}

	assert.Equal(t, NoPermission, ArtifactPermission(artifact, shares, grantee))
}

func TestPermissionChecks(t *testing.T) {
	owner := uuid.New()
	grantee := uuid.New()
	stranger := uuid.New()

	artifact := schema.Artifact{Id: uuid.New(), OwnerId: owner, Visibility: schema.Public}
	shares := []schema.ArtifactShare{
		{Id: uuid.New(), ArtifactId: artifact.Id, SharedWithUserId: grantee},
	}

	assert.True(t, CanRead(artifact, shares, stranger))
	assert.False(t, CanDownload(artifact, shares, stranger))

	assert.True(t, CanRead(artifact, shares, grantee))
	assert.True(t, CanDownload(artifact, shares, grantee))
	assert.False(t, CanWrite(artifact, grantee))

	assert.True(t, CanDownload(artifact, shares, owner))
	assert.True(t, CanWrite(artifact, owner))
}
