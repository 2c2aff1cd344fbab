// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kienvo/identra/internal/auth"
	"github.com/kienvo/identra/internal/platform/dberr"
	"github.com/kienvo/identra/pkg/pagination"
)

// # Postgres Directory Repository

// Public columns only; the directory never reads credential material.
const directoryColumns = `id, name, email, role, isverified, profileimage,
	createdat, updatedat`

type PostgresDirectoryRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDirectoryRepository(db *pgxpool.Pool) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: db}
}

func (repository *PostgresDirectoryRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	query := `SELECT ` + directoryColumns + ` FROM users.account WHERE id = $1`

	var user auth.User
	err := repository.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.IsVerified,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	return &user, nil
}

func (repository *PostgresDirectoryRepository) UpdateProfile(ctx context.Context, id string, name, profileImage *string) (*auth.User, error) {
	// COALESCE keeps the stored value wherever the caller passed nil.
	query := `
		UPDATE users.account
		SET name = COALESCE($2, name),
		    profileimage = COALESCE($3, profileimage),
		    updatedat = $4
		WHERE id = $1
		RETURNING ` + directoryColumns

	var user auth.User
	err := repository.db.QueryRow(ctx, query, id, name, profileImage, time.Now()).Scan(
		&user.ID, &user.Name, &user.Email, &user.Role, &user.IsVerified,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	return &user, nil
}

func (repository *PostgresDirectoryRepository) List(ctx context.Context, params pagination.Params, search string) ([]*auth.User, int, error) {
	pattern := "%" + search + "%"

	countQuery := `
		SELECT COUNT(*)
		FROM users.account
		WHERE $1 = '' OR name ILIKE $2 OR email ILIKE $2`

	var total int
	if err := repository.db.QueryRow(ctx, countQuery, search, pattern).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	listQuery := `
		SELECT ` + directoryColumns + `
		FROM users.account
		WHERE $1 = '' OR name ILIKE $2 OR email ILIKE $2
		ORDER BY createdat DESC
		LIMIT $3 OFFSET $4`

	rows, err := repository.db.Query(ctx, listQuery, search, pattern, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	defer rows.Close()

	var entries []*auth.User
	for rows.Next() {
		var user auth.User
		err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.Role, &user.IsVerified,
			&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err)
		}
		entries = append(entries, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	return entries, total, nil
}

func (repository *PostgresDirectoryRepository) Delete(ctx context.Context, id string) error {
	// Refresh-token ledger rows follow via ON DELETE CASCADE.
	query := `DELETE FROM users.account WHERE id = $1`

	if _, err := repository.db.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err)
	}
	return nil
}
