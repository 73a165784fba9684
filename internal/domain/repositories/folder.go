package repositories

import (
	"context"

	"cloudsyncpro/internal/domain/models"
)

// FolderFilter selects folders for listings and searches.
type FolderFilter struct {
	OwnerID      *int64 // nil = every owner (admin scope)
	ParentScoped bool   // when true, restrict to ParentID (nil = root level)
	ParentID     *int64
	Search       string // case-insensitive substring on name; empty = no filter
	Limit        int    // 0 = unlimited
}

// FolderRepository defines data access operations for folders.
// Reads return folders annotated with owner info and direct child counts.
type FolderRepository interface {
	// List returns folders matching the filter ordered by name ascending
	List(ctx context.Context, filter FolderFilter) ([]models.Folder, error)

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id int64) (*models.Folder, error)

	// Insert creates a folder and returns its new ID
	Insert(ctx context.Context, name string, parentID *int64, ownerID int64) (int64, error)

	// Rename changes a folder's name
	Rename(ctx context.Context, id int64, name string) error

	// Reparent moves a folder under a new parent (nil = root)
	Reparent(ctx context.Context, id int64, parentID *int64) error

	// Delete removes a folder row
	Delete(ctx context.Context, id int64) error

	// CountChildren returns direct subfolder and file counts
	CountChildren(ctx context.Context, id int64) (models.ChildCounts, error)

	// IsDescendant reports whether folderID lies in ancestorID's subtree,
	// searching at most maxDepth levels below ancestorID. truncated is set
	// when the subtree continues below maxDepth, so a false found is not
	// conclusive.
	IsDescendant(ctx context.Context, folderID, ancestorID int64, maxDepth int) (found, truncated bool, err error)

	// LockHierarchy serializes structural changes (moves) until the
	// surrounding transaction ends. It must run inside ExecTx.
	LockHierarchy(ctx context.Context) error

	// GetPath returns the ancestor chain of a folder, root first, ending with the folder
	GetPath(ctx context.Context, id int64, maxDepth int) ([]models.PathSegment, error)

	// GetSubtreeStats aggregates direct and total descendant counts
	GetSubtreeStats(ctx context.Context, id int64) (*models.FolderStats, error)

	// ExistsSiblingWithName checks the sibling uniqueness invariant
	// (same parent and owner), optionally ignoring one folder
	ExistsSiblingWithName(ctx context.Context, name string, parentID *int64, ownerID int64, excludeID *int64) (bool, error)
}
