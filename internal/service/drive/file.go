package drive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"
	"cloudsyncpro/internal/storage"

	"golang.org/x/sync/errgroup"
)

type fileService struct {
	fileRepo   repositories.FileRepository
	folderRepo repositories.FolderRepository
	store      storage.Provider
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewFileService creates the file attachment manager
func NewFileService(
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	store storage.Provider,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.FileService {
	return &fileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		store:      store,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// ValidateUploadTarget checks that folderID exists and the principal may write to it
func (s *fileService) ValidateUploadTarget(ctx context.Context, principal models.Principal, folderID *int64) error {
	if folderID == nil {
		return nil
	}

	folder, err := s.folderRepo.GetByID(ctx, *folderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.NotFoundError{Message: "target folder does not exist"}
		}
		return err
	}

	return s.authorizer.CanModify(principal, folder.OwnerID, "folder")
}

// CreateFile records an uploaded object. The uploader owns the file even when
// the folder belongs to someone else.
func (s *fileService) CreateFile(ctx context.Context, principal models.Principal, req *services.CreateFileRequest) (*models.File, error) {
	rename := &services.RenameFileRequest{Name: req.Name}
	if err := rename.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	if err := s.ValidateUploadTarget(ctx, principal, req.FolderID); err != nil {
		return nil, err
	}

	file := &models.File{
		Name:        strings.TrimSpace(req.Name),
		StoragePath: req.StoragePath,
		URL:         req.URL,
		MIMEType:    req.MIMEType,
		Size:        req.Size,
		Category:    models.CategoryForMIME(req.MIMEType),
		FolderID:    req.FolderID,
		OwnerID:     principal.ID,
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		return nil, err
	}

	s.logger.Info("file created",
		"id", file.ID,
		"name", file.Name,
		"folder_id", file.FolderID,
		"size", file.Size,
		"owner_id", principal.ID,
	)

	return s.fileRepo.GetByID(ctx, file.ID)
}

// ListFiles returns a page of files. Rows and the total are fetched concurrently.
func (s *fileService) ListFiles(ctx context.Context, principal models.Principal, query *services.ListFilesQuery) (*models.FilePage, error) {
	query.ApplyDefaults()
	if err := query.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	filter := repositories.FileFilter{
		OwnerID:      ownerScope(principal),
		FolderScoped: query.FolderScoped,
		FolderID:     query.FolderID,
		Search:       strings.TrimSpace(query.Search),
		Category:     query.Category,
		Limit:        query.Limit,
		Offset:       (query.Page - 1) * query.Limit,
	}

	var rows []models.File
	var total int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.fileRepo.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.fileRepo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.FilePage{
		Rows:       rows,
		Pagination: models.NewPagination(query.Page, query.Limit, total),
	}, nil
}

// GetFile retrieves a file the principal may access
func (s *fileService) GetFile(ctx context.Context, principal models.Principal, id int64) (*models.File, error) {
	return s.getAuthorized(ctx, principal, id)
}

func (s *fileService) getAuthorized(ctx context.Context, principal models.Principal, id int64) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanModify(principal, file.OwnerID, "file"); err != nil {
		return nil, err
	}
	return file, nil
}

// OpenFile retrieves a file and opens its stored content
func (s *fileService) OpenFile(ctx context.Context, principal models.Principal, id int64) (*models.File, io.ReadCloser, error) {
	file, err := s.getAuthorized(ctx, principal, id)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.store.Open(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("file content missing from storage", "id", id, "path", file.StoragePath)
			return nil, nil, &domain.NotFoundError{Message: "file content is no longer available"}
		}
		return nil, nil, err
	}

	return file, content, nil
}

// RenameFile changes a file's display name
func (s *fileService) RenameFile(ctx context.Context, principal models.Principal, id int64, name string) (*models.File, error) {
	req := &services.RenameFileRequest{Name: name}
	if err := req.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	if _, err := s.getAuthorized(ctx, principal, id); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if err := s.fileRepo.Rename(ctx, id, name); err != nil {
		return nil, err
	}

	s.logger.Info("file renamed", "id", id, "name", name, "by", principal.ID)
	return s.fileRepo.GetByID(ctx, id)
}

// MoveFile reassigns a file to another folder
func (s *fileService) MoveFile(ctx context.Context, principal models.Principal, id int64, folderID *int64) (*models.File, error) {
	if _, err := s.getAuthorized(ctx, principal, id); err != nil {
		return nil, err
	}

	if err := s.ValidateUploadTarget(ctx, principal, folderID); err != nil {
		return nil, err
	}

	if err := s.fileRepo.Reparent(ctx, id, folderID); err != nil {
		return nil, err
	}

	s.logger.Info("file moved", "id", id, "folder_id", folderID, "by", principal.ID)
	return s.fileRepo.GetByID(ctx, id)
}

// DeleteFile removes the row, then the stored object. A storage failure is
// logged and does not undo the delete: the row is authoritative.
func (s *fileService) DeleteFile(ctx context.Context, principal models.Principal, id int64) (*models.DeletionReceipt, error) {
	file, err := s.getAuthorized(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if err := s.fileRepo.Delete(ctx, id); err != nil {
		return nil, err
	}

	if err := s.store.Delete(ctx, file.StoragePath); err != nil {
		s.logger.Warn("failed to remove stored object",
			"id", id,
			"path", file.StoragePath,
			"error", err,
		)
	}

	s.logger.Info("file deleted", "id", id, "name", file.Name, "by", principal.ID)

	return &models.DeletionReceipt{
		ID:        file.ID,
		Name:      file.Name,
		DeletedAt: s.now(),
		DeletedBy: principal.ID,
	}, nil
}

// SearchFiles finds files by name
func (s *fileService) SearchFiles(ctx context.Context, principal models.Principal, query *services.SearchFilesQuery) ([]models.File, error) {
	if err := query.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	return s.fileRepo.List(ctx, repositories.FileFilter{
		OwnerID:      ownerScope(principal),
		FolderScoped: query.FolderID != nil,
		FolderID:     query.FolderID,
		Search:       strings.TrimSpace(query.Term),
		Category:     query.Category,
		Limit:        config.SearchResultLimit,
	})
}

// GetStats aggregates the principal's files, or every file for admins
func (s *fileService) GetStats(ctx context.Context, principal models.Principal) (*models.FileStats, error) {
	owner := ownerScope(principal)

	var stats *models.FileStats
	var byCategory map[models.FileCategory]int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.fileRepo.Stats(gctx, owner, s.now())
		return err
	})
	g.Go(func() error {
		var err error
		byCategory, err = s.fileRepo.CountByCategory(gctx, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.ByCategory = byCategory
	return stats, nil
}
