package services

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"artifact_registry/registry/auth"
	"artifact_registry/registry/schema"
	"artifact_registry/registry/storage"
	"artifact_registry/registry/store"
	"artifact_registry/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileService struct {
	db       *gorm.DB
	storage  storage.Storage
	userAuth auth.IdentityProvider
}

func (s *FileService) VersionRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.With(checkSufficientStorage(s.storage)).Post("/{version_id}/upload", s.Upload)
	r.Get("/{version_id}/files", s.List)

	return r
}

func (s *FileService) FileRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/{file_id}", s.Download)
	r.Delete("/{file_id}", s.Delete)

	return r
}

func getMultipartBoundary(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return "", CodedError(fmt.Errorf("missing 'Content-Type' header in request"), http.StatusBadRequest)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", CodedError(fmt.Errorf("error parsing media type in request: %w", err), http.StatusBadRequest)
	}
	if mediaType != "multipart/form-data" {
		return "", CodedError(fmt.Errorf("expected media type to be 'multipart/form-data'"), http.StatusBadRequest)
	}

	boundary, ok := params["boundary"]
	if !ok {
		return "", CodedError(fmt.Errorf("missing 'boundary' parameter in 'Content-Type' header"), http.StatusBadRequest)
	}

	return boundary, nil
}

type FileInfo struct {
	Id          uuid.UUID `json:"id"`
	VersionId   uuid.UUID `json:"version_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func convertToFileInfo(file *schema.ArtifactFile) FileInfo {
	return FileInfo{
		Id:          file.Id,
		VersionId:   file.VersionId,
		Filename:    file.DisplayName(),
		ContentType: file.ContentType,
		SizeBytes:   file.SizeBytes,
		CreatedAt:   file.CreatedAt,
	}
}

func (s *FileService) Upload(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	versionId, err := utils.URLParamUUID(r, "version_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	boundary, err := getMultipartBoundary(r)
	if err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	reader := multipart.NewReader(r.Body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("error parsing multipart request: %v", err), http.StatusBadRequest)
			return
		}
		defer part.Close()

		if part.FormName() != "file" {
			continue
		}

		file, err := store.UploadFile(s.db, s.storage, versionId, user.Id, part, part.FileName(), part.Header.Get("Content-Type"))
		if err != nil {
			http.Error(w, err.Error(), storeErrorCode(err))
			return
		}

		filesUploaded.Inc()
		fileBytesUploaded.Add(float64(file.SizeBytes))

		slog.Info("file uploaded", "file_id", file.Id, "version_id", versionId, "size_bytes", file.SizeBytes)

		utils.WriteJsonResponse(w, convertToFileInfo(&file))
		return
	}

	http.Error(w, "missing 'file' field in multipart request", http.StatusBadRequest)
}

func (s *FileService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	versionId, err := utils.URLParamUUID(r, "version_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	files, err := store.ListFilesForVersion(s.db, versionId, user.Id)
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	infos := make([]FileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, convertToFileInfo(&f))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *FileService) Download(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fileId, err := utils.URLParamUUID(r, "file_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, err := store.GetFile(s.db, s.storage, fileId, user.Id)
	if err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "http response does not support chunked response.", http.StatusInternalServerError)
		return
	}

	blob, err := s.storage.Read(file.StoragePath)
	if err != nil {
		slog.Error("error opening blob for download", "file_id", fileId, "error", err)
		http.Error(w, "error reading file contents", http.StatusInternalServerError)
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.SizeBytes))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.DisplayName()))

	buffer := bufio.NewReader(blob)
	chunk := make([]byte, 1024*1024)

	for {
		readN, err := buffer.Read(chunk)
		isEof := err == io.EOF
		if err != nil && !isEof {
			slog.Error("error reading chunk of file", "file_id", fileId, "error", err)
			http.Error(w, "error reading file contents", http.StatusInternalServerError)
			return
		}

		writeN, err := w.Write(chunk[:readN])
		if err != nil {
			slog.Error("error writing download chunk", "file_id", fileId, "error", err)
			return
		}
		if writeN != readN {
			slog.Error("error writing download chunk", "file_id", fileId, "error", fmt.Sprintf("expected to write %d bytes to stream, wrote %d", readN, writeN))
			return
		}
		flusher.Flush() // Sends chunk

		if isEof {
			break
		}
	}

	filesDownloaded.Inc()
}

func (s *FileService) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fileId, err := utils.URLParamUUID(r, "file_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := store.DeleteFile(s.db, s.storage, fileId, user.Id); err != nil {
		http.Error(w, err.Error(), storeErrorCode(err))
		return
	}

	filesDeleted.Inc()

	slog.Info("file deleted", "file_id", fileId)

	utils.WriteSuccess(w)
}
