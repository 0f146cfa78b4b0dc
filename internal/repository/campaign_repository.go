package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
)

type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Campaign, error)
}

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT id, user_id, title, description, language, hashtags, tone, call_to_action, created_at, updated_at
		FROM campaigns WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var c models.Campaign
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Language,
		pq.Array(&c.Hashtags), &c.Tone, &c.CallToAction, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &c, nil
}

func (r *campaignRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Campaign, error) {
	query := `
		SELECT id, user_id, title, description, language, hashtags, tone, call_to_action, created_at, updated_at
		FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		var c models.Campaign
		err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Language,
			pq.Array(&c.Hashtags), &c.Tone, &c.CallToAction, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}
