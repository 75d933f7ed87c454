package services

import (
	"log"
	"net/http"
	"os"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/storage"
	"artifact_registry/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type ArtifactRegistry struct {
	user     UserService
	artifact ArtifactService
	file     FileService

	db *gorm.DB
}

func NewArtifactRegistry(db *gorm.DB, storage storage.Storage, userAuth auth.IdentityProvider) ArtifactRegistry {
	return ArtifactRegistry{
		user:     UserService{db: db, userAuth: userAuth},
		artifact: ArtifactService{db: db, userAuth: userAuth},
		file:     FileService{db: db, storage: storage, userAuth: userAuth},

		db: db,
	}
}

func (m *ArtifactRegistry) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", m.user.Routes())
	r.Mount("/artifact", m.artifact.Routes())
	r.Mount("/version", m.file.VersionRoutes())
	r.Mount("/file", m.file.FileRoutes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
