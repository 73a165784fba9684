package repositories

import (
	"context"
	"time"

	"cloudsyncpro/internal/domain/models"
)

// FileFilter selects files for listings and searches.
type FileFilter struct {
	OwnerID      *int64 // nil = every owner (admin scope)
	FolderScoped bool   // when true, restrict to FolderID (nil = root level)
	FolderID     *int64
	Search       string
	Category     models.FileCategory // empty = every category
	Limit        int                 // 0 = unlimited
	Offset       int
}

// FileRepository defines data access operations for files
type FileRepository interface {
	// Create inserts a file row; ID and timestamps are set on the passed struct
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a file with owner and folder names joined
	GetByID(ctx context.Context, id int64) (*models.File, error)

	// List returns files matching the filter, newest first
	List(ctx context.Context, filter FileFilter) ([]models.File, error)

	// Count returns how many files match the filter (Limit/Offset ignored)
	Count(ctx context.Context, filter FileFilter) (int, error)

	// Rename changes a file's display name
	Rename(ctx context.Context, id int64, name string) error

	// Reparent moves a file into another folder (nil = root)
	Reparent(ctx context.Context, id int64, folderID *int64) error

	// Delete removes a file row
	Delete(ctx context.Context, id int64) error

	// Stats aggregates counts and bytes; now anchors the 7 and 30 day windows.
	// ByCategory is left nil, see CountByCategory.
	Stats(ctx context.Context, ownerID *int64, now time.Time) (*models.FileStats, error)

	// CountByCategory returns file counts keyed by category (nil owner = all files)
	CountByCategory(ctx context.Context, ownerID *int64) (map[models.FileCategory]int, error)
}
