package postgres

import (
	"context"
	"fmt"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface
type PostgresRefreshTokenRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(config *RepositoryConfig) repositories.RefreshTokenRepository {
	return &PostgresRefreshTokenRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create stores a token hash
func (r *PostgresRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, r.tables.RefreshTokens)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

// GetByHash looks up a stored token by its hash
func (r *PostgresRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM %s
		WHERE token_hash = $1
	`, r.tables.RefreshTokens)

	var token models.RefreshToken
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: "refresh token not found"}
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	return &token, nil
}

// Revoke marks a single token revoked. A token that is already revoked, or
// gets revoked by a concurrent caller first, yields NotFoundError: the row
// lock taken by the UPDATE makes exactly one caller win.
func (r *PostgresRefreshTokenRepository) Revoke(ctx context.Context, id int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, r.tables.RefreshTokens)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: "refresh token not found or already revoked"}
	}
	return nil
}

// RevokeAllForUser revokes every outstanding token of a user
func (r *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`, r.tables.RefreshTokens)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, at, userID); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
