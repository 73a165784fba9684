package services

import (
	"context"
	"regexp"
	"strings"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FolderService is the folder hierarchy manager. Every operation on an
// existing folder requires the principal to own it or be an admin.
type FolderService interface {
	// CreateFolder creates a folder owned by the principal
	CreateFolder(ctx context.Context, principal models.Principal, req *CreateFolderRequest) (*models.Folder, error)

	// ListFolders lists one level of the tree (nil parent = root), optionally filtered by name
	ListFolders(ctx context.Context, principal models.Principal, parentID *int64, search string) ([]models.Folder, error)

	// GetFolder retrieves a folder with its direct counts
	GetFolder(ctx context.Context, principal models.Principal, id int64) (*models.Folder, error)

	// RenameFolder renames a folder, keeping sibling names unique
	RenameFolder(ctx context.Context, principal models.Principal, id int64, name string) (*models.Folder, error)

	// MoveFolder reparents a folder (nil = root), refusing cycles
	MoveFolder(ctx context.Context, principal models.Principal, id int64, newParentID *int64) (*models.Folder, error)

	// DeleteFolder deletes an empty folder
	DeleteFolder(ctx context.Context, principal models.Principal, id int64) (*models.DeletionReceipt, error)

	// DuplicateFolder creates a shallow copy next to the source, owned by the principal
	DuplicateFolder(ctx context.Context, principal models.Principal, id int64, newName *string) (*models.Folder, error)

	// GetFolderPath returns the breadcrumb chain, root first
	GetFolderPath(ctx context.Context, principal models.Principal, id int64) ([]models.PathSegment, error)

	// GetFolderStats aggregates the folder's subtree
	GetFolderStats(ctx context.Context, principal models.Principal, id int64) (*models.FolderStats, error)

	// SearchFolders finds folders by name, capped at config.SearchResultLimit
	SearchFolders(ctx context.Context, principal models.Principal, term string, parentID *int64) ([]models.Folder, error)
}

// TreeService builds the nested folder/file tree
type TreeService interface {
	GetTree(ctx context.Context, principal models.Principal) (*models.Tree, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string `json:"name_folder"`
	ParentID *int64 `json:"parent_folder_id,omitempty"` // nil = root
}

func (r *CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, FolderNameRules()...),
		validation.Field(&r.ParentID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

// RenameFolderRequest represents a folder rename request
type RenameFolderRequest struct {
	Name string `json:"name_folder"`
}

func (r *RenameFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, FolderNameRules()...),
	)
}

// DuplicateFolderRequest represents a folder duplication request
type DuplicateFolderRequest struct {
	NewName *string `json:"new_name,omitempty"`
}

func (r *DuplicateFolderRequest) Validate() error {
	if r.NewName == nil || strings.TrimSpace(*r.NewName) == "" {
		return nil
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.NewName, FolderNameRules()...),
	)
}

var forbiddenNameChars = regexp.MustCompile(`^[^/\\:*?"<>|]*$`)

// FolderNameRules are the folder naming rules shared by create, rename and duplicate
func FolderNameRules() []validation.Rule {
	return []validation.Rule{
		validation.By(notBlank),
		validation.By(trimmedLength(1, config.MaxFolderNameLength)),
		validation.Match(forbiddenNameChars).Error(`cannot contain any of / \ : * ? " < > |`),
	}
}

// ValidateFolderName applies FolderNameRules to a single value
func ValidateFolderName(name string) error {
	if err := validation.Validate(name, FolderNameRules()...); err != nil {
		return ToValidationError(validation.Errors{"name_folder": err})
	}
	return nil
}
