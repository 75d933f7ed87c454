package store

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"artifact_registry/registry/schema"
	"artifact_registry/registry/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDb(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Artifact{}, &schema.ArtifactVersion{},
		&schema.ArtifactFile{}, &schema.ArtifactShare{},
	)
	if err != nil {
		t.Fatal(err)
	}

	return db
}

func addUser(t *testing.T, db *gorm.DB, email string) schema.User {
	user := schema.User{Id: uuid.New(), Email: email}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	return user
}

func TestCreateArtifactValidation(t *testing.T) {
	db := setupTestDb(t)
	user := addUser(t, db, "a@mail.com")

	_, err := CreateArtifact(db, user.Id, "  ", schema.ModelArtifact, "", schema.Private)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = CreateArtifact(db, user.Id, "model", "BLUEPRINT", "", schema.Private)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = CreateArtifact(db, user.Id, "model", schema.ModelArtifact, "", "FRIENDS")
	assert.ErrorIs(t, err, ErrValidation)

	artifact, err := CreateArtifact(db, user.Id, "model", schema.ModelArtifact, "a model", schema.Private)
	assert.NoError(t, err)
	assert.Equal(t, user.Id, artifact.OwnerId)
}

func TestVersionConflict(t *testing.T) {
	db := setupTestDb(t)
	user := addUser(t, db, "a@mail.com")

	artifact, err := CreateArtifact(db, user.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)

	_, err = CreateVersion(db, artifact.Id, "1.0.0", "", user.Id)
	assert.NoError(t, err)

	_, err = CreateVersion(db, artifact.Id, "1.0.0", "other changelog", user.Id)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = CreateVersion(db, artifact.Id, "1.0.1", "", user.Id)
	assert.NoError(t, err)
}

func TestVersionOwnerOnly(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")

	artifact, err := CreateArtifact(db, owner.Id, "data", schema.DatasetArtifact, "", schema.Public)
	assert.NoError(t, err)

	_, err = CreateVersion(db, artifact.Id, "1", "", other.Id)
	assert.ErrorIs(t, err, ErrNotFoundOrDenied)

	_, err = CreateVersion(db, uuid.New(), "1", "", owner.Id)
	assert.ErrorIs(t, err, ErrNotFoundOrDenied)
}

func TestListVisibleArtifacts(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")

	public, err := CreateArtifact(db, owner.Id, "public", schema.DatasetArtifact, "", schema.Public)
	assert.NoError(t, err)
	private, err := CreateArtifact(db, owner.Id, "private", schema.RunArtifact, "", schema.Private)
	assert.NoError(t, err)
	shared, err := CreateArtifact(db, owner.Id, "shared", schema.PaperArtifact, "", schema.Shared)
	assert.NoError(t, err)

	_, err = GrantShare(db, shared.Id, other.Email, owner.Id)
	assert.NoError(t, err)

	visible, err := ListVisibleArtifacts(db, other.Id)
	assert.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(visible))
	for _, a := range visible {
		ids = append(ids, a.Id)
	}
	assert.Contains(t, ids, public.Id)
	assert.Contains(t, ids, shared.Id)
	assert.NotContains(t, ids, private.Id)

	mine, err := ListArtifactsByOwner(db, owner.Id)
	assert.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestGrantShareErrors(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)

	_, err = GrantShare(db, artifact.Id, other.Email, other.Id)
	assert.ErrorIs(t, err, ErrNotFoundOrDenied)

	_, err = GrantShare(db, artifact.Id, "nobody@mail.com", owner.Id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = GrantShare(db, artifact.Id, owner.Email, owner.Id)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = GrantShare(db, artifact.Id, other.Email, owner.Id)
	assert.NoError(t, err)

	_, err = GrantShare(db, artifact.Id, other.Email, owner.Id)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUploadAndGetFile(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")
	store := storage.NewSharedDisk(t.TempDir())

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)

	file, err := UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.NoError(t, err)
	assert.Equal(t, "weights.bin", file.DisplayName())
	assert.Equal(t, DefaultContentType, file.ContentType)
	assert.Equal(t, int64(len("weights")), file.SizeBytes)

	exists, err := store.Exists(file.StoragePath)
	assert.NoError(t, err)
	assert.True(t, exists)

	_, err = UploadFile(db, store, version.Id, other.Id, bytes.NewReader([]byte("x")), "x.bin", "")
	assert.ErrorIs(t, err, ErrNotFoundOrDenied)

	_, err = GetFile(db, store, file.Id, other.Id)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = GrantShare(db, artifact.Id, other.Email, owner.Id)
	assert.NoError(t, err)

	got, err := GetFile(db, store, file.Id, other.Id)
	assert.NoError(t, err)
	assert.Equal(t, file.Id, got.Id)
}

func TestGetFileMissingBlob(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	store := storage.NewSharedDisk(t.TempDir())

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)
	file, err := UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.NoError(t, err)

	err = store.Delete(file.StoragePath)
	assert.NoError(t, err)

	_, err = GetFile(db, store, file.Id, owner.Id)
	assert.ErrorIs(t, err, ErrStorageInconsistency)
}

func countStoredFiles(t *testing.T, dir string) int {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return count
}

func TestUploadRemovesBlobOnInsertFailure(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	dir := t.TempDir()
	store := storage.NewSharedDisk(dir)

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)

	// Force the metadata insert to fail after the blob has been written.
	err = db.Migrator().DropTable(&schema.ArtifactFile{})
	assert.NoError(t, err)

	_, err = UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.ErrorIs(t, err, schema.ErrDbAccessFailed)
	assert.NotErrorIs(t, err, ErrStorageInconsistency)

	// No blob may outlive the failed upload.
	assert.Equal(t, 0, countStoredFiles(t, dir))
}

func TestUploadInsertFailureWithFailingCleanup(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	dir := t.TempDir()
	store := storage.NewSharedDisk(dir)

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)

	err = db.Migrator().DropTable(&schema.ArtifactFile{})
	assert.NoError(t, err)

	_, err = UploadFile(db, &failingDeleteStorage{Storage: store}, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	// The orphaned blob is still on disk, which is exactly what the error
	// reports.
	assert.Equal(t, 1, countStoredFiles(t, dir))
}

type failingDeleteStorage struct {
	storage.Storage
}

func (s *failingDeleteStorage) Delete(path string) error {
	return errors.New("disk error")
}

func TestDeleteFileKeepsRecordIfBlobDeleteFails(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	store := storage.NewSharedDisk(t.TempDir())

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)
	file, err := UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.NoError(t, err)

	err = DeleteFile(db, &failingDeleteStorage{Storage: store}, file.Id, owner.Id)
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	// The record must survive so the blob stays discoverable.
	_, err = schema.GetFile(file.Id, db)
	assert.NoError(t, err)

	err = DeleteFile(db, store, file.Id, owner.Id)
	assert.NoError(t, err)

	_, err = schema.GetFile(file.Id, db)
	assert.ErrorIs(t, err, schema.ErrFileNotFound)

	exists, err := store.Exists(file.StoragePath)
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteFilePermissions(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")
	store := storage.NewSharedDisk(t.TempDir())

	artifact, err := CreateArtifact(db, owner.Id, "model", schema.ModelArtifact, "", schema.Private)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1.0.0", "", owner.Id)
	assert.NoError(t, err)
	file, err := UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("weights")), "weights.bin", "")
	assert.NoError(t, err)

	_, err = GrantShare(db, artifact.Id, other.Email, owner.Id)
	assert.NoError(t, err)

	err = DeleteFile(db, store, file.Id, other.Id)
	assert.ErrorIs(t, err, ErrAccessDenied)

	err = DeleteFile(db, store, file.Id, owner.Id)
	assert.NoError(t, err)

	err = DeleteFile(db, store, file.Id, owner.Id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFilesForVersion(t *testing.T) {
	db := setupTestDb(t)
	owner := addUser(t, db, "owner@mail.com")
	other := addUser(t, db, "other@mail.com")
	store := storage.NewSharedDisk(t.TempDir())

	artifact, err := CreateArtifact(db, owner.Id, "data", schema.DatasetArtifact, "", schema.Public)
	assert.NoError(t, err)
	version, err := CreateVersion(db, artifact.Id, "1", "", owner.Id)
	assert.NoError(t, err)

	_, err = UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("a")), "a.csv", "text/csv")
	assert.NoError(t, err)
	_, err = UploadFile(db, store, version.Id, owner.Id, bytes.NewReader([]byte("b")), "a.csv", "text/csv")
	assert.NoError(t, err)

	// Same filename uploads coexist under distinct storage paths.
	files, err := ListFilesForVersion(db, version.Id, other.Id)
	assert.NoError(t, err)
	assert.Len(t, files, 2)
	assert.NotEqual(t, files[0].StoragePath, files[1].StoragePath)

	_, err = ListFilesForVersion(db, uuid.New(), owner.Id)
	assert.ErrorIs(t, err, ErrNotFound)
}
