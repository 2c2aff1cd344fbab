// Copyright (c) 2026 Identra. All rights reserved.
// Author: kien.vo.dev@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kienvo/identra/internal/platform/dberr"
)

// # Postgres User Repository

const userColumns = `id, name, email, passwordhash, role, isverified,
	verificationtoken, resettoken, resetexpiresat, profileimage,
	createdat, updatedat`

// PostgresUserRepository implements UserRepository on top of pgx.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users.account
			(` + userColumns + `)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := repository.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.IsVerified, user.VerificationToken, user.ResetToken,
		user.ResetExpiresAt, user.ProfileImage, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		// The unique index on email is the race-proof backstop behind the
		// service's pre-check.
		if dberr.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return dberr.Wrap(err)
	}
	return nil
}

func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE id = $1`
	return repository.scanOne(ctx, query, id)
}

func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE email = $1`
	return repository.scanOne(ctx, query, email)
}

func (repository *PostgresUserRepository) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users.account WHERE verificationtoken = $1`
	return repository.scanOne(ctx, query, token)
}

func (repository *PostgresUserRepository) FindByActiveResetToken(ctx context.Context, token string, now time.Time) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users.account
		WHERE resettoken = $1 AND resetexpiresat > $2`
	return repository.scanOne(ctx, query, token, now)
}

func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, userID string) error {
	query := `
		UPDATE users.account
		SET isverified = TRUE, verificationtoken = NULL, updatedat = $2
		WHERE id = $1`

	if _, err := repository.db.Exec(ctx, query, userID, time.Now()); err != nil {
		return dberr.Wrap(err)
	}
	return nil
}

func (repository *PostgresUserRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `
		UPDATE users.account
		SET resettoken = $2, resetexpiresat = $3, updatedat = $4
		WHERE id = $1`

	if _, err := repository.db.Exec(ctx, query, userID, token, expiresAt, time.Now()); err != nil {
		return dberr.Wrap(err)
	}
	return nil
}

func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users.account
		SET passwordhash = $2, resettoken = NULL, resetexpiresat = NULL, updatedat = $3
		WHERE id = $1`

	if _, err := repository.db.Exec(ctx, query, userID, passwordHash, time.Now()); err != nil {
		return dberr.Wrap(err)
	}
	return nil
}

func (repository *PostgresUserRepository) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var user User
	err := repository.db.QueryRow(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.IsVerified, &user.VerificationToken, &user.ResetToken,
		&user.ResetExpiresAt, &user.ProfileImage, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	return &user, nil
}

// # Postgres Refresh Token Ledger

// PostgresRefreshTokenRepository implements RefreshTokenRepository.
type PostgresRefreshTokenRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRefreshTokenRepository(db *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

func (repository *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO users.refresh_token (token, userid, expiresat, createdat)
		VALUES ($1, $2, $3, $4)`

	_, err := repository.db.Exec(ctx, query,
		token.Token, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return dberr.Wrap(err)
	}
	return nil
}

func (repository *PostgresRefreshTokenRepository) Find(ctx context.Context, token string) (*RefreshToken, error) {
	query := `
		SELECT token, userid, expiresat, createdat
		FROM users.refresh_token
		WHERE token = $1`

	var row RefreshToken
	err := repository.db.QueryRow(ctx, query, token).Scan(
		&row.Token, &row.UserID, &row.ExpiresAt, &row.CreatedAt)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	return &row, nil
}

func (repository *PostgresRefreshTokenRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error) {
	// The expiresat guard makes the swap conditional: of N concurrent
	// rotations of the same token, exactly one matches a live row.
	query := `
		UPDATE users.refresh_token
		SET token = $2, expiresat = $3
		WHERE token = $1 AND expiresat > NOW()`

	tag, err := repository.db.Exec(ctx, query, oldToken, newToken, expiresAt)
	if err != nil {
		return false, dberr.Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (repository *PostgresRefreshTokenRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM users.refresh_token WHERE token = $1`

	if _, err := repository.db.Exec(ctx, query, token); err != nil {
		return dberr.Wrap(err)
	}
	return nil
}
