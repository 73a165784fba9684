package models

import (
	"time"
)

type Folder struct {
	ID         int64     `json:"id_folder" db:"id"`
	Name       string    `json:"name_folder" db:"name"`
	ParentID   *int64    `json:"parent_folder_id" db:"parent_id"` // NULL = root level
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	OwnerName  string    `json:"owner_name,omitempty"`  // Joined from users, not stored on folders
	OwnerEmail string    `json:"owner_email,omitempty"` // Joined from users, not stored on folders
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Computed per query
	SubfolderCount int `json:"subfolder_count"`
	FileCount      int `json:"file_count"`
}

// PathSegment is one breadcrumb entry; Level 0 is the root-most ancestor.
type PathSegment struct {
	ID    int64  `json:"id_folder"`
	Name  string `json:"name_folder"`
	Level int    `json:"level"`
}

// ChildCounts holds direct-only counts used to guard deletes
type ChildCounts struct {
	Subfolders int `json:"subfolders"`
	Files      int `json:"files"`
}

// IsEmpty reports whether the folder has neither subfolders nor files
func (c ChildCounts) IsEmpty() bool {
	return c.Subfolders == 0 && c.Files == 0
}

// FolderStats aggregates a folder's subtree. Totals exclude the folder itself.
type FolderStats struct {
	FolderID         int64 `json:"id_folder"`
	DirectSubfolders int   `json:"direct_subfolders"`
	DirectFiles      int   `json:"direct_files"`
	TotalSubfolders  int   `json:"total_subfolders"`
	TotalFiles       int   `json:"total_files"`
	TotalBytes       int64 `json:"total_bytes"`
}

// DeletionReceipt is returned by successful folder and file deletes
type DeletionReceipt struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	DeletedAt time.Time `json:"deleted_at"`
	DeletedBy int64     `json:"deleted_by"`
}

// FolderTreeNode represents a folder in the nested tree
type FolderTreeNode struct {
	ID        int64             `json:"id_folder"`
	Name      string            `json:"name_folder"`
	ParentID  *int64            `json:"parent_folder_id"`
	OwnerID   int64             `json:"owner_id"`
	CreatedAt time.Time         `json:"created_at"`
	Folders   []*FolderTreeNode `json:"folders"`
	Files     []FileTreeNode    `json:"files"`
}

// FileTreeNode represents a file leaf in the nested tree
type FileTreeNode struct {
	ID       int64        `json:"id_file"`
	Name     string       `json:"name_file"`
	FolderID *int64       `json:"folder_id"`
	Category FileCategory `json:"category"`
	Size     int64        `json:"size"`
}

// Tree is the root of the nested folder/file tree
type Tree struct {
	Folders []*FolderTreeNode `json:"folders"`
	Files   []FileTreeNode    `json:"files"`
}
