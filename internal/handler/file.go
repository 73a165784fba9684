package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/services"
	"cloudsyncpro/internal/httputil"
	"cloudsyncpro/internal/storage"
	"cloudsyncpro/internal/upload"
)

// multipartMemory is how much of a multipart form is buffered in memory before spilling to disk
const multipartMemory = 32 << 20

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService services.FileService
	store       storage.Provider
	policy      *upload.Policy
	logger      *slog.Logger
	now         func() time.Time
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService services.FileService, store storage.Provider, policy *upload.Policy, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		store:       store,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

type moveFileBody struct {
	FolderID httputil.OptionalID `json:"folder_id"`
}

type uploadResult struct {
	Files []*models.File `json:"files"`
}

// accepted is a validated part waiting to be stored
type accepted struct {
	header    *multipart.FileHeader
	name      string
	mimeType  string
	extension string
}

// UploadFiles stores one or more files into a folder (or the root)
// POST /api/files/upload (multipart: files[], folder_id)
func (h *FileHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.policy.MaxRequestBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, domain.CodeValidation, "upload exceeds the maximum request size")
			return
		}
		handleError(w, r, h.logger, domain.NewValidationError("files", "expected a multipart/form-data body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	folderID, err := httputil.ParseOptionalID(r.FormValue("folder_id"))
	if err != nil {
		handleError(w, r, h.logger, domain.NewValidationError("folder_id", "must be a positive integer or null"))
		return
	}

	headers := r.MultipartForm.File["files"]
	if err := h.policy.CheckCount(len(headers)); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	if err := h.fileService.ValidateUploadTarget(r.Context(), principal, folderID); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	// Every part is checked before anything is stored
	parts := make([]accepted, 0, len(headers))
	for _, header := range headers {
		detected, err := h.checkPart(header)
		if err != nil {
			handleError(w, r, h.logger, err)
			return
		}
		parts = append(parts, accepted{
			header:    header,
			name:      displayName(header.Filename),
			mimeType:  detected.MIMEType,
			extension: detected.Extension,
		})
	}

	created := make([]*models.File, 0, len(parts))
	for _, part := range parts {
		file, err := h.storePart(r, principal, folderID, part)
		if err != nil {
			h.discard(r, principal, created)
			handleError(w, r, h.logger, err)
			return
		}
		created = append(created, file)
	}

	httputil.RespondSuccess(w, http.StatusCreated,
		fmt.Sprintf("%d file(s) uploaded successfully", len(created)),
		uploadResult{Files: created})
}

func (h *FileHandler) checkPart(header *multipart.FileHeader) (*upload.Detected, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", header.Filename, err)
	}
	defer f.Close()

	return h.policy.Check(header.Filename, header.Size, f)
}

// storePart writes the content and records the row. The stored object is
// removed again when the row cannot be created.
func (h *FileHandler) storePart(r *http.Request, principal models.Principal, folderID *int64, part accepted) (*models.File, error) {
	f, err := part.header.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", part.name, err)
	}
	defer f.Close()

	ctx := r.Context()
	key := storage.NewKey(part.extension, h.now())
	size, err := h.store.Save(ctx, key, f, part.mimeType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", part.name, err)
	}

	file, err := h.fileService.CreateFile(ctx, principal, &services.CreateFileRequest{
		Name:        part.name,
		StoragePath: key,
		URL:         h.store.URL(key),
		MIMEType:    part.mimeType,
		Size:        size,
		FolderID:    folderID,
	})
	if err != nil {
		if delErr := h.store.Delete(ctx, key); delErr != nil {
			h.logger.Warn("failed to clean up stored object", "key", key, "error", delErr)
		}
		return nil, err
	}

	return file, nil
}

// discard removes the files already recorded by a failed upload so the
// request stores all of its parts or none
func (h *FileHandler) discard(r *http.Request, principal models.Principal, files []*models.File) {
	ctx := context.WithoutCancel(r.Context())
	for _, file := range files {
		if _, err := h.fileService.DeleteFile(ctx, principal, file.ID); err != nil {
			h.logger.Warn("failed to discard partially uploaded file", "id", file.ID, "error", err)
		}
	}
}

// displayName keeps only the last path element of a client supplied filename
func displayName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSpace(name)
}

// ListFiles returns a page of files
// GET /api/files?folder_id=&search=&category=&page=&limit=
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	values := r.URL.Query()
	query := &services.ListFilesQuery{
		FolderScoped: values.Has("folder_id"),
		Search:       values.Get("search"),
		Category:     models.FileCategory(values.Get("category")),
	}

	var err error
	if query.FolderID, err = httputil.QueryOptionalID(r, "folder_id"); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if query.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if query.Limit, err = httputil.QueryInt(r, "limit", 0); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	page, err := h.fileService.ListFiles(r.Context(), principal, query)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Files retrieved successfully", page)
}

// GetFile retrieves a file's metadata
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, err := h.fileService.GetFile(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File retrieved successfully", file)
}

// DownloadFile streams a file's content as an attachment
// GET /api/files/{id}/download
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, content, err := h.fileService.OpenFile(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	if file.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("download interrupted", "id", id, "error", err)
	}
}

// RenameFile changes a file's display name
// PUT /api/files/{id}
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req services.RenameFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, err := h.fileService.RenameFile(r.Context(), principal, id, req.Name)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File renamed successfully", file)
}

// MoveFile reassigns a file to another folder
// PUT /api/files/{id}/move
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var body moveFileBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, err := h.fileService.MoveFile(r.Context(), principal, id, body.FolderID.Value)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File moved successfully", file)
}

// DeleteFile removes a file
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	receipt, err := h.fileService.DeleteFile(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File deleted successfully", receipt)
}

// SearchFiles finds files by name
// GET /api/files/search?query=&category=&folder_id=
func (h *FileHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	folderID, err := httputil.QueryOptionalID(r, "folder_id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	values := r.URL.Query()
	files, err := h.fileService.SearchFiles(r.Context(), principal, &services.SearchFilesQuery{
		Term:     values.Get("query"),
		Category: models.FileCategory(values.Get("category")),
		FolderID: folderID,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Search completed", files)
}

// GetStats aggregates the caller's files
// GET /api/files/stats/user
func (h *FileHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	stats, err := h.fileService.GetStats(r.Context(), principal)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "File stats retrieved successfully", stats)
}
