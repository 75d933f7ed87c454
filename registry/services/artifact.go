package services

import (
	"net/http"
	"time"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"
	"artifact_registry/registry/store"
	"artifact_registry/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArtifactService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *ArtifactService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)
	r.Get("/list", s.List)
	r.Get("/mine", s.Mine)

	r.Post("/{artifact_id}/version", s.CreateVersion)
	r.Get("/{artifact_id}/versions", s.ListVersions)

	r.Post("/{artifact_id}/share", s.Share)
	r.Get("/{artifact_id}/shares", s.ListShares)

	return r
}

type ArtifactInfo struct {
	Id          uuid.UUID           `json:"id"`
	OwnerId     uuid.UUID           `json:"owner_id"`
	Title       string              `json:"title"`
	Type        schema.ArtifactType `json:"type"`
	Description string              `json:"description"`
	Visibility  schema.Visibility   `json:"visibility"`
	CreatedAt   time.Time           `json:"created_at"`
}

func convertToArtifactInfo(artifact *schema.Artifact) ArtifactInfo {
	return ArtifactInfo{
		Id:          artifact.Id,
		OwnerId:     artifact.OwnerId,
		Title:       artifact.Title,
		Type:        artifact.Type,
		Description: artifact.Description,
		Visibility:  artifact.Visibility,
		CreatedAt:   artifact.CreatedAt,
	}
}

type createArtifactRequest struct {
	Title       string              `json:"title"`
	Type        schema.ArtifactType `json:"type"`
	Description string              `json:"description"`
	Visibility  schema.Visibility   `json:"visibility"`
}

func (s *ArtifactService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createArtifactRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Visibility == "" {
		params.Visibility = schema.Private
	}

	var artifact schema.Artifact
	err = s.db.Transaction(func(txn *gorm.DB) error {
		artifact, err = store.CreateArtifact(txn, user.Id, params.Title, params.Type, params.Description, params.Visibility)
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	artifactsCreated.Inc()

	utils.WriteJsonResponse(w, convertToArtifactInfo(&artifact))
}

func (s *ArtifactService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifacts, err := store.ListVisibleArtifacts(s.db, user.Id)
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	infos := make([]ArtifactInfo, 0, len(artifacts))
	for _, a := range artifacts {
		infos = append(infos, convertToArtifactInfo(&a))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *ArtifactService) Mine(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifacts, err := store.ListArtifactsByOwner(s.db, user.Id)
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	infos := make([]ArtifactInfo, 0, len(artifacts))
	for _, a := range artifacts {
		infos = append(infos, convertToArtifactInfo(&a))
	}
	utils.WriteJsonResponse(w, infos)
}

type VersionInfo struct {
	Id         uuid.UUID `json:"id"`
	ArtifactId uuid.UUID `json:"artifact_id"`
	Version    string    `json:"version"`
	Changelog  string    `json:"changelog"`
	CreatedAt  time.Time `json:"created_at"`
}

func convertToVersionInfo(version *schema.ArtifactVersion) VersionInfo {
	return VersionInfo{
		Id:         version.Id,
		ArtifactId: version.ArtifactId,
		Version:    version.Version,
		Changelog:  version.Changelog,
		CreatedAt:  version.CreatedAt,
	}
}

type createVersionRequest struct {
	Version   string `json:"version"`
	Changelog string `json:"changelog"`
}

func (s *ArtifactService) CreateVersion(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifactId, err := utils.URLParamUUID(r, "artifact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params createVersionRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var version schema.ArtifactVersion
	err = s.db.Transaction(func(txn *gorm.DB) error {
		version, err = store.CreateVersion(txn, artifactId, params.Version, params.Changelog, user.Id)
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	versionsCreated.Inc()

	utils.WriteJsonResponse(w, convertToVersionInfo(&version))
}

func (s *ArtifactService) ListVersions(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifactId, err := utils.URLParamUUID(r, "artifact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	versions, err := store.ListVersions(s.db, artifactId, user.Id)
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	infos := make([]VersionInfo, 0, len(versions))
	for _, v := range versions {
		infos = append(infos, convertToVersionInfo(&v))
	}
	utils.WriteJsonResponse(w, infos)
}

type ShareInfo struct {
	Id              uuid.UUID `json:"id"`
	ArtifactId      uuid.UUID `json:"artifact_id"`
	SharedWithEmail string    `json:"shared_with_email"`
	CreatedAt       time.Time `json:"created_at"`
}

type shareRequest struct {
	Email string `json:"email"`
}

func (s *ArtifactService) Share(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifactId, err := utils.URLParamUUID(r, "artifact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params shareRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var share schema.ArtifactShare
	err = s.db.Transaction(func(txn *gorm.DB) error {
		share, err = store.GrantShare(txn, artifactId, params.Email, user.Id)
		return err
	})
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	info := ShareInfo{Id: share.Id, ArtifactId: share.ArtifactId, SharedWithEmail: params.Email, CreatedAt: share.CreatedAt}
	utils.WriteJsonResponse(w, info)
}

func (s *ArtifactService) ListShares(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	artifactId, err := utils.URLParamUUID(r, "artifact_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var infos []ShareInfo
	err = s.db.Transaction(func(txn *gorm.DB) error {
		shares, err := store.ListShares(txn, artifactId, user.Id)
		if err != nil {
			return err
		}

		infos = make([]ShareInfo, 0, len(shares))
		for _, share := range shares {
			grantee, err := schema.GetUser(share.SharedWithUserId, txn)
			if err != nil {
				return err
			}
			infos = append(infos, ShareInfo{
				Id:              share.Id,
				ArtifactId:      share.ArtifactId,
				SharedWithEmail: grantee.Email,
				CreatedAt:       share.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	utils.WriteJsonResponse(w, infos)
}
