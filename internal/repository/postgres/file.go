package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresFileRepository) selectFile() string {
	return fmt.Sprintf(`
		SELECT fi.id, fi.name, fi.path, fi.url, fi.mime, fi.size, fi.category, fi.folder_id,
			fi.owner_id, fi.created_at, fi.updated_at, u.name, u.email, f.name
		FROM %s fi
		JOIN %s u ON u.id = fi.owner_id
		LEFT JOIN %s f ON f.id = fi.folder_id
	`, r.tables.Files, r.tables.Users, r.tables.Folders)
}

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.StoragePath,
		&file.URL,
		&file.MIMEType,
		&file.Size,
		&file.Category,
		&file.FolderID,
		&file.OwnerID,
		&file.CreatedAt,
		&file.UpdatedAt,
		&file.OwnerName,
		&file.OwnerEmail,
		&file.FolderName,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// whereClause builds the filter conditions shared by List and Count
func whereClause(filter repositories.FileFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("fi.owner_id = $%d", len(args)))
	}
	if filter.FolderScoped {
		if filter.FolderID == nil {
			conditions = append(conditions, "fi.folder_id IS NULL")
		} else {
			args = append(args, *filter.FolderID)
			conditions = append(conditions, fmt.Sprintf("fi.folder_id = $%d", len(args)))
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("fi.name ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("fi.category = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Create inserts a file row
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, path, url, mime, size, category, folder_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, r.tables.Files)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		file.Name,
		file.StoragePath,
		file.URL,
		file.MIMEType,
		file.Size,
		file.Category,
		file.FolderID,
		file.OwnerID,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "target folder does not exist or no access"}
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file by ID
func (r *PostgresFileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	query := r.selectFile() + " WHERE fi.id = $1"

	file, err := scanFile(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// List returns files matching the filter, newest first
func (r *PostgresFileRepository) List(ctx context.Context, filter repositories.FileFilter) ([]models.File, error) {
	where, args := whereClause(filter)
	query := r.selectFile() + where + " ORDER BY fi.created_at DESC, fi.id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}

// Count returns the number of files matching the filter
func (r *PostgresFileRepository) Count(ctx context.Context, filter repositories.FileFilter) (int, error) {
	where, args := whereClause(filter)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s fi", r.tables.Files) + where

	var total int
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}

	return total, nil
}

// Rename changes a file's display name
func (r *PostgresFileRepository) Rename(ctx context.Context, id int64, name string) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $1, updated_at = NOW() WHERE id = $2`, r.tables.Files)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}

	return nil
}

// Reparent moves a file into another folder
func (r *PostgresFileRepository) Reparent(ctx context.Context, id int64, folderID *int64) error {
	query := fmt.Sprintf(`UPDATE %s SET folder_id = $1, updated_at = NOW() WHERE id = $2`, r.tables.Files)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, folderID, id)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return &domain.NotFoundError{Message: "destination folder does not exist or no access"}
		}
		return fmt.Errorf("move file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}

	return nil
}

// Delete removes a file row
func (r *PostgresFileRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
	}

	return nil
}

// Stats aggregates totals and recent-activity windows in a single pass
func (r *PostgresFileRepository) Stats(ctx context.Context, ownerID *int64, now time.Time) (*models.FileStats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COALESCE(SUM(size), 0),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $3)
		FROM %s
		WHERE ($1::bigint IS NULL OR owner_id = $1::bigint)
	`, r.tables.Files)

	stats := &models.FileStats{GlobalScope: ownerID == nil}
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		ownerID,
		now.AddDate(0, 0, -7),
		now.AddDate(0, 0, -30),
	).Scan(&stats.TotalFiles, &stats.TotalBytes, &stats.Last7Days, &stats.Last30Days)
	if err != nil {
		return nil, fmt.Errorf("file stats: %w", err)
	}

	return stats, nil
}

// CountByCategory returns file counts per category
func (r *PostgresFileRepository) CountByCategory(ctx context.Context, ownerID *int64) (map[models.FileCategory]int, error) {
	query := fmt.Sprintf(`
		SELECT category, COUNT(*)
		FROM %s
		WHERE ($1::bigint IS NULL OR owner_id = $1::bigint)
		GROUP BY category
	`, r.tables.Files)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count files by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.FileCategory]int, len(models.AllCategories))
	for _, c := range models.AllCategories {
		counts[c] = 0
	}
	for rows.Next() {
		var category models.FileCategory
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}

	return counts, nil
}
