package drive

import (
	"context"
	"log/slog"

	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"

	"golang.org/x/sync/errgroup"
)

// treeService implements the TreeService interface
type treeService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	logger     *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	logger *slog.Logger,
) services.TreeService {
	return &treeService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		logger:     logger,
	}
}

// GetTree builds the nested folder/file tree visible to the principal
func (s *treeService) GetTree(ctx context.Context, principal models.Principal) (*models.Tree, error) {
	owner := ownerScope(principal)

	var allFolders []models.Folder
	var allFiles []models.File

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		allFolders, err = s.folderRepo.List(gctx, repositories.FolderFilter{OwnerID: owner})
		return err
	})
	g.Go(func() error {
		var err error
		allFiles, err = s.fileRepo.List(gctx, repositories.FileFilter{OwnerID: owner})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree := BuildTree(allFolders, allFiles)

	s.logger.Info("folder tree built",
		"principal_id", principal.ID,
		"folder_count", len(allFolders),
		"file_count", len(allFiles),
	)

	return tree, nil
}

// BuildTree nests folders and files in three passes. Folders whose parent is
// not visible (and files whose folder is not visible) are attached at the root.
func BuildTree(folders []models.Folder, files []models.File) *models.Tree {
	folderMap := make(map[int64]*models.FolderTreeNode, len(folders))

	// First pass: create all folder nodes
	for _, folder := range folders {
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			OwnerID:   folder.OwnerID,
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Files:     []models.FileTreeNode{},
		}
	}

	// Second pass: connect children to parents
	rootFolders := make([]*models.FolderTreeNode, 0)
	for _, folder := range folders {
		node := folderMap[folder.ID]
		if folder.ParentID != nil {
			if parent, exists := folderMap[*folder.ParentID]; exists {
				parent.Folders = append(parent.Folders, node)
				continue
			}
		}
		rootFolders = append(rootFolders, node)
	}

	// Third pass: attach files
	rootFiles := make([]models.FileTreeNode, 0)
	for _, file := range files {
		fileNode := models.FileTreeNode{
			ID:       file.ID,
			Name:     file.Name,
			FolderID: file.FolderID,
			Category: file.Category,
			Size:     file.Size,
		}
		if file.FolderID != nil {
			if parent, exists := folderMap[*file.FolderID]; exists {
				parent.Files = append(parent.Files, fileNode)
				continue
			}
		}
		rootFiles = append(rootFiles, fileNode)
	}

	return &models.Tree{
		Folders: rootFolders,
		Files:   rootFiles,
	}
}
