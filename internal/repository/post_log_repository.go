package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/postpilothq/postpilot/internal/models"
)

type PostLogRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pl *models.PostLog) (string, error)
	ListByCampaignID(ctx context.Context, campaignID string, limit int) ([]*models.PostLog, error)
	ListByDraftID(ctx context.Context, draftID string) ([]*models.PostLog, error)
}

type postLogRepository struct {
	db *sql.DB
}

func NewPostLogRepository(db *sql.DB) PostLogRepository {
	return &postLogRepository{db: db}
}

func (r *postLogRepository) Create(ctx context.Context, tx *sql.Tx, pl *models.PostLog) (string, error) {
	details, err := json.Marshal(pl.Details)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	query := `
		INSERT INTO post_logs (id, campaign_id, draft_id, action, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id string
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, pl.ID, pl.CampaignID, pl.DraftID, pl.Action, details).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, pl.ID, pl.CampaignID, pl.DraftID, pl.Action, details).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *postLogRepository) ListByCampaignID(ctx context.Context, campaignID string, limit int) ([]*models.PostLog, error) {
	query := `
		SELECT id, campaign_id, draft_id, run_at, action, details
		FROM post_logs WHERE campaign_id = $1 ORDER BY run_at DESC LIMIT $2
	`
	return r.list(ctx, query, campaignID, limit)
}

func (r *postLogRepository) ListByDraftID(ctx context.Context, draftID string) ([]*models.PostLog, error) {
	query := `
		SELECT id, campaign_id, draft_id, run_at, action, details
		FROM post_logs WHERE draft_id = $1 ORDER BY run_at DESC
	`
	return r.list(ctx, query, draftID)
}

func (r *postLogRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.PostLog
	for rows.Next() {
		var pl models.PostLog
		var details []byte
		if err := rows.Scan(&pl.ID, &pl.CampaignID, &pl.DraftID, &pl.RunAt, &pl.Action, &details); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &pl.Details); err != nil {
				slog.Info(err.Error())
				return nil, err
			}
		}
		logs = append(logs, &pl)
	}
	return logs, rows.Err()
}
