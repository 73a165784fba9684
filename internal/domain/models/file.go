package models

import (
	"strings"
	"time"
)

// FileCategory is derived from the MIME type at upload time
type FileCategory string

const (
	CategoryImage      FileCategory = "image"
	CategoryPDF        FileCategory = "pdf"
	CategoryWord       FileCategory = "word"
	CategoryExcel      FileCategory = "excel"
	CategoryPowerPoint FileCategory = "powerpoint"
	CategoryDocument   FileCategory = "document"
)

// AllCategories lists every category in display order
var AllCategories = []FileCategory{
	CategoryImage,
	CategoryPDF,
	CategoryWord,
	CategoryExcel,
	CategoryPowerPoint,
	CategoryDocument,
}

// IsValid reports whether c is a known category
func (c FileCategory) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryForMIME maps a MIME type to its category. Unknown types are documents.
func CategoryForMIME(mimeType string) FileCategory {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage
	case mt == "application/pdf":
		return CategoryPDF
	case mt == "application/msword",
		strings.Contains(mt, "wordprocessingml"):
		return CategoryWord
	case mt == "application/vnd.ms-excel",
		strings.Contains(mt, "spreadsheetml"):
		return CategoryExcel
	case mt == "application/vnd.ms-powerpoint",
		strings.Contains(mt, "presentationml"):
		return CategoryPowerPoint
	default:
		return CategoryDocument
	}
}

type File struct {
	ID          int64        `json:"id_file" db:"id"`
	Name        string       `json:"name_file" db:"name"`
	StoragePath string       `json:"-" db:"path"` // Opaque storage key, never exposed
	URL         string       `json:"url" db:"url"`
	MIMEType    string       `json:"mime_type" db:"mime"`
	Size        int64        `json:"size" db:"size"`
	Category    FileCategory `json:"category" db:"category"`
	FolderID    *int64       `json:"folder_id" db:"folder_id"` // NULL = root level
	OwnerID     int64        `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`

	// Joined on read
	OwnerName  string  `json:"owner_name,omitempty"`
	OwnerEmail string  `json:"owner_email,omitempty"`
	FolderName *string `json:"folder_name,omitempty"`
}

// Pagination describes a page of a listing
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination computes page metadata from a total and the requested window
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// FilePage is a paginated file listing
type FilePage struct {
	Rows       []File     `json:"rows"`
	Pagination Pagination `json:"pagination"`
}

// FileStats aggregates file counts for a principal (or globally for admins)
type FileStats struct {
	TotalFiles  int                  `json:"total_files"`
	TotalBytes  int64                `json:"total_bytes"`
	ByCategory  map[FileCategory]int `json:"by_category"`
	Last7Days   int                  `json:"last_7_days"`
	Last30Days  int                  `json:"last_30_days"`
	GlobalScope bool                 `json:"global_scope"`
}
