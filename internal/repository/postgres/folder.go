package postgres

import (
	"context"
	"fmt"
	"strings"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// selectFolder returns the shared projection: owner info joined, direct counts
// computed with correlated subqueries.
func (r *PostgresFolderRepository) selectFolder() string {
	return fmt.Sprintf(`
		SELECT f.id, f.name, f.parent_id, f.owner_id, u.name, u.email, f.created_at, f.updated_at,
			(SELECT COUNT(*) FROM %[1]s c WHERE c.parent_id = f.id) AS subfolder_count,
			(SELECT COUNT(*) FROM %[2]s fi WHERE fi.folder_id = f.id) AS file_count
		FROM %[1]s f
		JOIN %[3]s u ON u.id = f.owner_id
	`, r.tables.Folders, r.tables.Files, r.tables.Users)
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.Name,
		&folder.ParentID,
		&folder.OwnerID,
		&folder.OwnerName,
		&folder.OwnerEmail,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.SubfolderCount,
		&folder.FileCount,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// List returns folders matching the filter ordered by name
func (r *PostgresFolderRepository) List(ctx context.Context, filter repositories.FolderFilter) ([]models.Folder, error) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("f.owner_id = $%d", len(args)))
	}
	if filter.ParentScoped {
		if filter.ParentID == nil {
			conditions = append(conditions, "f.parent_id IS NULL")
		} else {
			args = append(args, *filter.ParentID)
			conditions = append(conditions, fmt.Sprintf("f.parent_id = $%d", len(args)))
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("f.name ILIKE $%d", len(args)))
	}

	query := r.selectFolder()
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY f.name ASC, f.id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	query := r.selectFolder() + " WHERE f.id = $1"

	folder, err := scanFolder(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Insert creates a folder and returns its ID
func (r *PostgresFolderRepository) Insert(ctx context.Context, name string, parentID *int64, ownerID int64) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, parent_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, r.tables.Folders)

	var id int64
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, name, parentID, ownerID).Scan(&id)
	if err != nil {
		return 0, r.mapWriteError(err, name)
	}

	return id, nil
}

// Rename changes a folder's name
func (r *PostgresFolderRepository) Rename(ctx context.Context, id int64, name string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, name, id)
	if err != nil {
		return r.mapWriteError(err, name)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
	}

	return nil
}

// Reparent moves a folder under a new parent
func (r *PostgresFolderRepository) Reparent(ctx context.Context, id int64, parentID *int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, parentID, id)
	if err != nil {
		return r.mapWriteError(err, "")
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
	}

	return nil
}

// Delete removes a folder row. Foreign keys restrict deleting non-empty folders.
func (r *PostgresFolderRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Folders)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotEmptyError{Message: "folder contains files or subfolders"}
		}
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
	}

	return nil
}

// CountChildren returns direct subfolder and file counts
func (r *PostgresFolderRepository) CountChildren(ctx context.Context, id int64) (models.ChildCounts, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE parent_id = $1),
			(SELECT COUNT(*) FROM %s WHERE folder_id = $1)
	`, r.tables.Folders, r.tables.Files)

	var counts models.ChildCounts
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&counts.Subfolders, &counts.Files); err != nil {
		return models.ChildCounts{}, fmt.Errorf("count folder children: %w", err)
	}

	return counts, nil
}

// IsDescendant walks down from ancestorID through parent links, at most maxDepth
// levels, and reports whether folderID was reached. truncated reports that
// some folder at the last searched level still has children.
func (r *PostgresFolderRepository) IsDescendant(ctx context.Context, folderID, ancestorID int64, maxDepth int) (bool, bool, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE descendants AS (
			SELECT id, 1 AS depth
			FROM %[1]s
			WHERE parent_id = $1

			UNION ALL

			SELECT c.id, d.depth + 1
			FROM %[1]s c
			INNER JOIN descendants d ON c.parent_id = d.id
			WHERE d.depth < $3
		)
		SELECT
			EXISTS (SELECT 1 FROM descendants WHERE id = $2),
			EXISTS (
				SELECT 1
				FROM descendants d
				INNER JOIN %[1]s c ON c.parent_id = d.id
				WHERE d.depth = $3
			)
	`, r.tables.Folders)

	var found, truncated bool
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, ancestorID, folderID, maxDepth).Scan(&found, &truncated); err != nil {
		return false, false, fmt.Errorf("check folder descendant: %w", err)
	}

	return found, truncated, nil
}

// LockHierarchy takes a transaction-scoped advisory lock keyed on the folders
// table. Concurrent moves queue behind it, so each one checks for cycles
// against the committed result of the previous move.
func (r *PostgresFolderRepository) LockHierarchy(ctx context.Context) error {
	tx := repositories.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("lock folder hierarchy: no transaction in context")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.tables.Folders); err != nil {
		return fmt.Errorf("lock folder hierarchy: %w", err)
	}
	return nil
}

// GetPath returns the ancestor chain of a folder using a recursive CTE,
// root first. Levels are renumbered so the root-most segment is 0.
func (r *PostgresFolderRepository) GetPath(ctx context.Context, id int64, maxDepth int) ([]models.PathSegment, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE ancestors AS (
			SELECT id, name, parent_id, 1 AS depth
			FROM %[1]s
			WHERE id = $1

			UNION ALL

			SELECT p.id, p.name, p.parent_id, a.depth + 1
			FROM %[1]s p
			INNER JOIN ancestors a ON p.id = a.parent_id
			WHERE a.depth < $2
		)
		SELECT id, name FROM ancestors ORDER BY depth DESC
	`, r.tables.Folders)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, id, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("get folder path: %w", err)
	}
	defer rows.Close()

	var path []models.PathSegment
	for rows.Next() {
		var seg models.PathSegment
		if err := rows.Scan(&seg.ID, &seg.Name); err != nil {
			return nil, fmt.Errorf("scan path segment: %w", err)
		}
		seg.Level = len(path)
		path = append(path, seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate path: %w", err)
	}

	if len(path) == 0 {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
	}

	return path, nil
}

// GetSubtreeStats aggregates direct and total descendant counts. UNION (not
// UNION ALL) stops the recursion if the data ever contains a cycle.
func (r *PostgresFolderRepository) GetSubtreeStats(ctx context.Context, id int64) (*models.FolderStats, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %[1]s WHERE id = $1

			UNION

			SELECT c.id
			FROM %[1]s c
			INNER JOIN subtree s ON c.parent_id = s.id
		)
		SELECT
			(SELECT COUNT(*) FROM %[1]s WHERE parent_id = $1),
			(SELECT COUNT(*) FROM %[2]s WHERE folder_id = $1),
			(SELECT COUNT(*) - 1 FROM subtree),
			(SELECT COUNT(*) FROM %[2]s WHERE folder_id IN (SELECT id FROM subtree)),
			(SELECT COALESCE(SUM(size), 0) FROM %[2]s WHERE folder_id IN (SELECT id FROM subtree))
	`, r.tables.Folders, r.tables.Files)

	stats := &models.FolderStats{FolderID: id}
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&stats.DirectSubfolders,
		&stats.DirectFiles,
		&stats.TotalSubfolders,
		&stats.TotalFiles,
		&stats.TotalBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("get folder stats: %w", err)
	}

	return stats, nil
}

// ExistsSiblingWithName checks for a folder with the same name, parent and owner
func (r *PostgresFolderRepository) ExistsSiblingWithName(ctx context.Context, name string, parentID *int64, ownerID int64, excludeID *int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE name = $1
				AND owner_id = $2
				AND parent_id IS NOT DISTINCT FROM $3::bigint
				AND ($4::bigint IS NULL OR id <> $4::bigint)
		)
	`, r.tables.Folders)

	var exists bool
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, name, ownerID, parentID, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sibling name: %w", err)
	}

	return exists, nil
}

// mapWriteError translates constraint violations on insert/update
func (r *PostgresFolderRepository) mapWriteError(err error, name string) error {
	switch {
	case IsPgDuplicateError(err) && pgConstraint(err) == siblingIndexName(r.tables):
		msg := "a folder with the same name already exists at the destination"
		if name != "" {
			msg = fmt.Sprintf("a folder named '%s' already exists at this location", name)
		}
		return &domain.ConflictError{Message: msg, ResourceType: "folder"}
	case IsPgForeignKeyError(err) && strings.HasSuffix(pgConstraint(err), "_owner_id_fkey"):
		return &domain.NotFoundError{Message: "owner does not exist"}
	case IsPgForeignKeyError(err):
		return &domain.NotFoundError{Message: "parent folder does not exist or no access"}
	default:
		return fmt.Errorf("write folder: %w", err)
	}
}

// escapeLike escapes LIKE wildcards so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
