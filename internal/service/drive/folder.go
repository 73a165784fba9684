package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloudsyncpro/internal/config"
	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// copySuffix is appended to a folder's name when a duplicate gets no explicit name
const copySuffix = " - Copy"

type folderService struct {
	folderRepo repositories.FolderRepository
	txManager  repositories.TransactionManager
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewFolderService creates the folder hierarchy manager
func NewFolderService(
	folderRepo repositories.FolderRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo: folderRepo,
		txManager:  txManager,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// ownerScope restricts non-admin queries to the principal's own rows
func ownerScope(principal models.Principal) *int64 {
	if principal.IsAdmin() {
		return nil
	}
	id := principal.ID
	return &id
}

// CreateFolder creates a folder owned by the principal
func (s *folderService) CreateFolder(ctx context.Context, principal models.Principal, req *services.CreateFolderRequest) (*models.Folder, error) {
	if err := req.Validate(); err != nil {
		return nil, services.ToValidationError(err)
	}

	return s.create(ctx, principal, strings.TrimSpace(req.Name), req.ParentID)
}

// create runs the parent, uniqueness and insert steps in one transaction.
// The sibling index still reports a lost race as a conflict.
func (s *folderService) create(ctx context.Context, principal models.Principal, name string, parentID *int64) (*models.Folder, error) {
	var id int64
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if parentID != nil {
			parent, err := s.folderRepo.GetByID(txCtx, *parentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.NotFoundError{Message: "parent folder does not exist or no access"}
				}
				return err
			}
			if err := s.authorizer.CanModify(principal, parent.OwnerID, "folder"); err != nil {
				return &domain.ForbiddenError{Message: "parent folder does not exist or no access"}
			}
		}

		exists, err := s.folderRepo.ExistsSiblingWithName(txCtx, name, parentID, principal.ID, nil)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists at this location", name),
				ResourceType: "folder",
			}
		}

		id, err = s.folderRepo.Insert(txCtx, name, parentID, principal.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", id,
		"name", name,
		"parent_folder_id", parentID,
		"owner_id", principal.ID,
	)

	return s.folderRepo.GetByID(ctx, id)
}

// ListFolders lists one level of the tree
func (s *folderService) ListFolders(ctx context.Context, principal models.Principal, parentID *int64, search string) ([]models.Folder, error) {
	return s.folderRepo.List(ctx, repositories.FolderFilter{
		OwnerID:      ownerScope(principal),
		ParentScoped: true,
		ParentID:     parentID,
		Search:       strings.TrimSpace(search),
	})
}

// GetFolder retrieves a folder the principal may access
func (s *folderService) GetFolder(ctx context.Context, principal models.Principal, id int64) (*models.Folder, error) {
	return s.getAuthorized(ctx, principal, id)
}

// getAuthorized fetches a folder and applies the owner-or-admin rule
func (s *folderService) getAuthorized(ctx context.Context, principal models.Principal, id int64) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanModify(principal, folder.OwnerID, "folder"); err != nil {
		return nil, err
	}
	return folder, nil
}

// RenameFolder renames a folder, keeping sibling names unique
func (s *folderService) RenameFolder(ctx context.Context, principal models.Principal, id int64, name string) (*models.Folder, error) {
	if err := services.ValidateFolderName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		folder, err := s.getAuthorized(txCtx, principal, id)
		if err != nil {
			return err
		}

		exists, err := s.folderRepo.ExistsSiblingWithName(txCtx, name, folder.ParentID, folder.OwnerID, &id)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists at this location", name),
				ResourceType: "folder",
			}
		}

		return s.folderRepo.Rename(txCtx, id, name)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder renamed", "id", id, "name", name, "by", principal.ID)

	return s.folderRepo.GetByID(ctx, id)
}

// MoveFolder reparents a folder. Moving a folder into itself or into any of
// its descendants is refused before anything is written, as is a move whose
// subtree is too deep to search. Moves hold the hierarchy lock so two crossing
// moves cannot both pass the cycle check.
func (s *folderService) MoveFolder(ctx context.Context, principal models.Principal, id int64, newParentID *int64) (*models.Folder, error) {
	if newParentID != nil && *newParentID < 1 {
		return nil, domain.NewValidationError("new_parent_id", "must be a positive integer or null")
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockHierarchy(txCtx); err != nil {
			return err
		}

		folder, err := s.getAuthorized(txCtx, principal, id)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if *newParentID == id {
				return &domain.InvalidOperationError{Message: "cannot move a folder into itself"}
			}

			parent, err := s.folderRepo.GetByID(txCtx, *newParentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.NotFoundError{Message: "destination folder does not exist or no access"}
				}
				return err
			}
			if err := s.authorizer.CanModify(principal, parent.OwnerID, "folder"); err != nil {
				return &domain.NotFoundError{Message: "destination folder does not exist or no access"}
			}

			inside, truncated, err := s.folderRepo.IsDescendant(txCtx, *newParentID, id, config.DescendantDepthLimit)
			if err != nil {
				return err
			}
			if inside {
				return &domain.InvalidOperationError{Message: "cannot move a folder into itself"}
			}
			if truncated {
				return &domain.InvalidOperationError{
					Message: fmt.Sprintf("folder tree is deeper than %d levels below this folder; move a subfolder instead", config.DescendantDepthLimit),
				}
			}
		}

		exists, err := s.folderRepo.ExistsSiblingWithName(txCtx, folder.Name, newParentID, folder.OwnerID, &id)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists at the destination", folder.Name),
				ResourceType: "folder",
			}
		}

		return s.folderRepo.Reparent(txCtx, id, newParentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved", "id", id, "parent_folder_id", newParentID, "by", principal.ID)

	return s.folderRepo.GetByID(ctx, id)
}

// DeleteFolder deletes an empty folder
func (s *folderService) DeleteFolder(ctx context.Context, principal models.Principal, id int64) (*models.DeletionReceipt, error) {
	var receipt *models.DeletionReceipt
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		folder, err := s.getAuthorized(txCtx, principal, id)
		if err != nil {
			return err
		}

		counts, err := s.folderRepo.CountChildren(txCtx, id)
		if err != nil {
			return err
		}
		if !counts.IsEmpty() {
			return &domain.NotEmptyError{
				Message:    "folder contains files or subfolders",
				Subfolders: counts.Subfolders,
				Files:      counts.Files,
			}
		}

		if err := s.folderRepo.Delete(txCtx, id); err != nil {
			return err
		}

		receipt = &models.DeletionReceipt{
			ID:        folder.ID,
			Name:      folder.Name,
			DeletedAt: s.now(),
			DeletedBy: principal.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder deleted", "id", id, "name", receipt.Name, "by", principal.ID)

	return receipt, nil
}

// DuplicateFolder creates a shallow copy next to the source. The copy belongs
// to the principal, not to the source's owner.
func (s *folderService) DuplicateFolder(ctx context.Context, principal models.Principal, id int64, newName *string) (*models.Folder, error) {
	source, err := s.getAuthorized(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	name := source.Name + copySuffix
	if newName != nil && strings.TrimSpace(*newName) != "" {
		name = *newName
	}
	if err := services.ValidateFolderName(name); err != nil {
		return nil, err
	}

	folder, err := s.create(ctx, principal, strings.TrimSpace(name), source.ParentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder duplicated", "source_id", id, "id", folder.ID, "by", principal.ID)
	return folder, nil
}

// GetFolderPath returns the breadcrumb chain, root first
func (s *folderService) GetFolderPath(ctx context.Context, principal models.Principal, id int64) ([]models.PathSegment, error) {
	if _, err := s.getAuthorized(ctx, principal, id); err != nil {
		return nil, err
	}
	return s.folderRepo.GetPath(ctx, id, config.PathDepthLimit)
}

// GetFolderStats aggregates the folder's subtree
func (s *folderService) GetFolderStats(ctx context.Context, principal models.Principal, id int64) (*models.FolderStats, error) {
	if _, err := s.getAuthorized(ctx, principal, id); err != nil {
		return nil, err
	}
	return s.folderRepo.GetSubtreeStats(ctx, id)
}

// SearchFolders finds folders by name
func (s *folderService) SearchFolders(ctx context.Context, principal models.Principal, term string, parentID *int64) ([]models.Folder, error) {
	if err := validation.Validate(term, services.SearchTermRules()...); err != nil {
		return nil, services.ToValidationError(validation.Errors{"query": err})
	}

	return s.folderRepo.List(ctx, repositories.FolderFilter{
		OwnerID:      ownerScope(principal),
		ParentScoped: parentID != nil,
		ParentID:     parentID,
		Search:       strings.TrimSpace(term),
		Limit:        config.SearchResultLimit,
	})
}
