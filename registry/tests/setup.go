package tests

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"
	"artifact_registry/registry/services"
	"artifact_registry/registry/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	registry services.ArtifactRegistry
	api      chi.Router
	storage  storage.Storage
}

const (
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

func setupTestEnv(t *testing.T) *testEnv {
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

	storagePath := filepath.Join(t.TempDir(), "storage")
	err = os.MkdirAll(storagePath, 0777)
	if err != nil {
		t.Fatalf("error creating storage directory: %v", err)
	}

	store := storage.NewSharedDisk(storagePath)

	userAuth, err := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{
			Secret:        []byte("290zcv02ai249"),
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	registry := services.NewArtifactRegistry(db, store, userAuth)

	return &testEnv{registry: registry, api: registry.Routes(), storage: store}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) newUser(name string) (client, error) {
	c := t.newClient()
	login, err := c.signup(name+"@mail.com", name+"_password")
	if err != nil {
		return client{}, err
	}

	err = c.login(login)
	if err != nil {
		return client{}, err
	}

	return c, nil
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(loginInfo{Email: adminEmail, Password: adminPassword})
	return c, err
}
