package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

const userColumns = `id, username, email, fullname, avatar, cover_image, password_hash,
		 COALESCE(refresh_token, ''), created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		// a malformed id can never match a row
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func wrapWriteErr(err error) error {
	if dbx.IsUniqueViolation(err, "") {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func wrapByIDErr(err error) error {
	if dbx.IsInvalidText(err) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.NewUser) (string, error) {
	query :=
		`INSERT INTO users (username, email, fullname, avatar, cover_image, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.FullName, user.Avatar, user.CoverImage, user.PasswordHash).Scan(&id)

	if err != nil {
		return "", wrapWriteErr(err)
	}

	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE username = $1 OR email = $2
		 LIMIT 1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, username, email))
}

func (r *PostgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	query :=
		`UPDATE users SET refresh_token = NULLIF($2, ''), updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return wrapByIDErr(err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, id, old, new string) (bool, error) {
	query :=
		`UPDATE users SET refresh_token = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, old, new)
	if err != nil {
		if dbx.IsInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return wrapByIDErr(err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (*models.User, error) {
	query :=
		`UPDATE users SET fullname = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.updateReturning(ctx, query, id, fullName, email)
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	query :=
		`UPDATE users SET avatar = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.updateReturning(ctx, query, id, url)
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	query :=
		`UPDATE users SET cover_image = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	return r.updateReturning(ctx, query, id, url)
}

func (r *PostgresRepository) updateReturning(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if dbx.IsUniqueViolation(err, "") {
		return nil, common.ErrorAlreadyExists
	}
	return u, err
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
