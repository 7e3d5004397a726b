// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using pgx.
//
// # Schema
//
// One row per pairing in canonical form (user_a < user_b), with unique
// indexes on both columns as a belt-and-braces backstop for the
// invariant the [Service] enforces in memory.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists a new pairing row.
func (repository *PostgresRepository) Create(ctx context.Context, p Pairing) error {
	const query = `
		INSERT INTO pairings (user_a, user_b, created_at)
		VALUES ($1, $2, $3)`

	_, err := repository.pool.Exec(ctx, query, p.UserA, p.UserB, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_pairing_repo_create_failed: %w", err)
	}

	return nil
}

// Delete removes the pairing involving the given user, if any.
func (repository *PostgresRepository) Delete(ctx context.Context, userID string) error {
	const query = `
		DELETE FROM pairings
		WHERE user_a = $1 OR user_b = $1`

	_, err := repository.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_pairing_repo_delete_failed: %w", err)
	}

	return nil
}

// All returns every stored pairing.
func (repository *PostgresRepository) All(ctx context.Context) ([]Pairing, error) {
	const query = `
		SELECT user_a, user_b, created_at
		FROM pairings
		ORDER BY created_at`

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_pairing_repo_all_failed: %w", err)
	}
	defer rows.Close()

	var pairings []Pairing
	for rows.Next() {
		var p Pairing
		if err := rows.Scan(&p.UserA, &p.UserB, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres_pairing_repo_scan_failed: %w", err)
		}
		pairings = append(pairings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_pairing_repo_rows_failed: %w", err)
	}

	return pairings, nil
}
