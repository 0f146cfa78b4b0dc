package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilothq/postpilot/internal/models"
)

type DraftMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, dma *models.DraftMediaAsset) error
	ListByDraftID(ctx context.Context, draftID string) ([]*models.DraftMediaAsset, error)
}

type draftMediaRepository struct {
	db *sql.DB
}

func NewDraftMediaRepository(db *sql.DB) DraftMediaRepository {
	return &draftMediaRepository{db: db}
}

func (r *draftMediaRepository) Create(ctx context.Context, tx *sql.Tx, dma *models.DraftMediaAsset) error {
	query := `
		INSERT INTO draft_media_assets (id, draft_id, media_asset_id, order_index)
		VALUES ($1, $2, $3, $4)
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, dma.ID, dma.DraftID, dma.MediaAssetID, dma.OrderIndex)
	} else {
		_, err = r.db.ExecContext(ctx, query, dma.ID, dma.DraftID, dma.MediaAssetID, dma.OrderIndex)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *draftMediaRepository) ListByDraftID(ctx context.Context, draftID string) ([]*models.DraftMediaAsset, error) {
	query := `
		SELECT id, draft_id, media_asset_id, order_index, created_at
		FROM draft_media_assets WHERE draft_id = $1 ORDER BY order_index ASC
	`
	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assocs []*models.DraftMediaAsset
	for rows.Next() {
		var dma models.DraftMediaAsset
		if err := rows.Scan(&dma.ID, &dma.DraftID, &dma.MediaAssetID, &dma.OrderIndex, &dma.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assocs = append(assocs, &dma)
	}
	return assocs, rows.Err()
}
