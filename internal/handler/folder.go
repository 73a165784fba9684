package handler

import (
	"log/slog"
	"net/http"

	"cloudsyncpro/internal/domain/services"
	"cloudsyncpro/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService services.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService services.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

type createFolderBody struct {
	Name     string              `json:"name_folder"`
	ParentID httputil.OptionalID `json:"parent_folder_id"`
}

type moveFolderBody struct {
	NewParentID httputil.OptionalID `json:"new_parent_id"`
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var body createFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), principal, &services.CreateFolderRequest{
		Name:     body.Name,
		ParentID: body.ParentID.Value,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusCreated, "Folder created successfully", folder)
}

// ListFolders lists one level of the tree
// GET /api/folders?parent_id=&search=
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	parentID, err := httputil.QueryOptionalID(r, "parent_id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folders, err := h.folderService.ListFolders(r.Context(), principal, parentID, r.URL.Query().Get("search"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folders retrieved successfully", folders)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder retrieved successfully", folder)
}

// RenameFolder renames a folder
// PUT /api/folders/{id}
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req services.RenameFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, r, h.logger, services.ToValidationError(err))
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), principal, id, req.Name)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder renamed successfully", folder)
}

// MoveFolder reparents a folder
// PUT /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var body moveFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), principal, id, body.NewParentID.Value)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder moved successfully", folder)
}

// DeleteFolder deletes an empty folder
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	receipt, err := h.folderService.DeleteFolder(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder deleted successfully", receipt)
}

// DuplicateFolder creates a shallow copy of a folder
// POST /api/folders/{id}/duplicate
func (h *FolderHandler) DuplicateFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req services.DuplicateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, r, h.logger, services.ToValidationError(err))
		return
	}

	folder, err := h.folderService.DuplicateFolder(r.Context(), principal, id, req.NewName)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusCreated, "Folder duplicated successfully", folder)
}

// GetFolderPath returns the breadcrumb chain
// GET /api/folders/{id}/path
func (h *FolderHandler) GetFolderPath(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	path, err := h.folderService.GetFolderPath(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder path retrieved successfully", path)
}

// GetFolderStats aggregates a folder's subtree
// GET /api/folders/{id}/stats
func (h *FolderHandler) GetFolderStats(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	id, err := httputil.ParseID(r, "id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	stats, err := h.folderService.GetFolderStats(r.Context(), principal, id)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Folder stats retrieved successfully", stats)
}

// SearchFolders finds folders by name
// GET /api/folders/search?query=&parent_id=
func (h *FolderHandler) SearchFolders(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	parentID, err := httputil.QueryOptionalID(r, "parent_id")
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folders, err := h.folderService.SearchFolders(r.Context(), principal, r.URL.Query().Get("query"), parentID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Search completed", folders)
}
