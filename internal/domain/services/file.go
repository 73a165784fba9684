package services

import (
	"context"
	"io"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FileService is the file attachment manager. Files hang off folders
// (or the root) and share the folders' owner-or-admin policy.
type FileService interface {
	// ValidateUploadTarget checks that the principal may place files in folderID (nil = root)
	ValidateUploadTarget(ctx context.Context, principal models.Principal, folderID *int64) error

	// CreateFile records an uploaded object owned by the principal
	CreateFile(ctx context.Context, principal models.Principal, req *CreateFileRequest) (*models.File, error)

	// ListFiles returns a page of files
	ListFiles(ctx context.Context, principal models.Principal, query *ListFilesQuery) (*models.FilePage, error)

	// GetFile retrieves a single file
	GetFile(ctx context.Context, principal models.Principal, id int64) (*models.File, error)

	// OpenFile retrieves a file and opens its stored content; the caller closes the reader
	OpenFile(ctx context.Context, principal models.Principal, id int64) (*models.File, io.ReadCloser, error)

	// RenameFile changes a file's display name
	RenameFile(ctx context.Context, principal models.Principal, id int64, name string) (*models.File, error)

	// MoveFile reassigns a file to another folder (nil = root)
	MoveFile(ctx context.Context, principal models.Principal, id int64, folderID *int64) (*models.File, error)

	// DeleteFile removes the row and, best-effort, the stored object
	DeleteFile(ctx context.Context, principal models.Principal, id int64) (*models.DeletionReceipt, error)

	// SearchFiles finds files by name, capped at config.SearchResultLimit
	SearchFiles(ctx context.Context, principal models.Principal, query *SearchFilesQuery) ([]models.File, error)

	// GetStats aggregates the principal's files (global for admins)
	GetStats(ctx context.Context, principal models.Principal) (*models.FileStats, error)
}

// CreateFileRequest describes an object already written to storage
type CreateFileRequest struct {
	Name        string
	StoragePath string
	URL         string
	MIMEType    string
	Size        int64
	FolderID    *int64
}

// ListFilesQuery carries listing filters and the page window
type ListFilesQuery struct {
	FolderScoped bool // when true, list FolderID only (nil = root files)
	FolderID     *int64
	Search       string
	Category     models.FileCategory
	Page         int
	Limit        int
}

func (q *ListFilesQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Category, validation.By(validCategory)),
		validation.Field(&q.Page, validation.Min(1)),
		validation.Field(&q.Limit, validation.Min(1), validation.Max(config.MaxPageSize)),
	)
}

// ApplyDefaults fills the page window when omitted
func (q *ListFilesQuery) ApplyDefaults() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = config.DefaultPageSize
	}
}

// SearchFilesQuery carries file search filters
type SearchFilesQuery struct {
	Term     string              `json:"query"`
	Category models.FileCategory `json:"category"`
	FolderID *int64              `json:"folder_id"`
}

func (q *SearchFilesQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Term, SearchTermRules()...),
		validation.Field(&q.Category, validation.By(validCategory)),
	)
}

// RenameFileRequest represents a file rename request
type RenameFileRequest struct {
	Name string `json:"name_file"`
}

func (r *RenameFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.By(notBlank),
			validation.By(trimmedLength(1, config.MaxFileNameLength)),
		),
	)
}

// SearchTermRules require at least config.MinSearchLength non-blank characters
func SearchTermRules() []validation.Rule {
	return []validation.Rule{
		validation.By(notBlank),
		validation.By(trimmedLength(config.MinSearchLength, 255)),
	}
}

func validCategory(value interface{}) error {
	c, _ := value.(models.FileCategory)
	if c == "" || c.IsValid() {
		return nil
	}
	return validation.NewError("validation_invalid_category", "must be one of image, pdf, word, excel, powerpoint, document")
}
