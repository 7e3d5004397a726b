// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
)

// PostgresTokenRepository persists refresh tokens in the spotify_links
// table, one row per user.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTokenRepository creates a TokenRepository backed by PostgreSQL.
func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

// Save upserts the user's refresh token. Re-linking replaces the stored
// token and resets linked_at.
func (repository *PostgresTokenRepository) Save(ctx context.Context, userID, refreshToken string) error {
	query := `
		INSERT INTO spotify_links (user_id, refresh_token, linked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET refresh_token = EXCLUDED.refresh_token, linked_at = EXCLUDED.linked_at`

	if _, err := repository.pool.Exec(ctx, query, userID, refreshToken, time.Now().UTC()); err != nil {
		return fmt.Errorf("spotify_token_save_failed: %w", err)
	}
	return nil
}

// Find returns the user's stored refresh token.
func (repository *PostgresTokenRepository) Find(ctx context.Context, userID string) (string, error) {
	query := `SELECT refresh_token FROM spotify_links WHERE user_id = $1`

	var refreshToken string
	err := repository.pool.QueryRow(ctx, query, userID).Scan(&refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotLinked("Spotify account is not linked")
		}
		return "", fmt.Errorf("spotify_token_find_failed: %w", err)
	}
	return refreshToken, nil
}

// Delete removes the user's stored refresh token.
func (repository *PostgresTokenRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM spotify_links WHERE user_id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("spotify_token_delete_failed: %w", err)
	}
	return nil
}
