package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type XAccountRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.XAccount, error)
	// ListExpiring returns accounts whose tokens expire inside the window or
	// have already expired.
	ListExpiring(ctx context.Context, from, to time.Time) ([]*models.XAccount, error)
	SetTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}

type xAccountRepository struct {
	db *sql.DB
}

func NewXAccountRepository(db *sql.DB) XAccountRepository {
	return &xAccountRepository{db: db}
}

const xAccountColumns = `id, user_id, access_token, refresh_token, token_expires_at, x_user_id, x_username, created_at`

func (r *xAccountRepository) GetByUserID(ctx context.Context, userID string) (*models.XAccount, error) {
	query := `SELECT ` + xAccountColumns + ` FROM x_accounts WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	var xa models.XAccount
	err := row.Scan(&xa.ID, &xa.UserID, &xa.AccessToken, &xa.RefreshToken,
		&xa.TokenExpiresAt, &xa.XUserID, &xa.XUsername, &xa.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &xa, nil
}

func (r *xAccountRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.XAccount, error) {
	query := `SELECT ` + xAccountColumns + ` FROM x_accounts
		WHERE (token_expires_at BETWEEN $1 AND $2) OR (token_expires_at < $1)`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.XAccount
	for rows.Next() {
		var xa models.XAccount
		err := rows.Scan(&xa.ID, &xa.UserID, &xa.AccessToken, &xa.RefreshToken,
			&xa.TokenExpiresAt, &xa.XUserID, &xa.XUsername, &xa.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &xa)
	}
	return accounts, rows.Err()
}

func (r *xAccountRepository) SetTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE x_accounts
		SET access_token = $2,
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return errors.New("no rows affected; account may not exist")
	}

	return nil
}
