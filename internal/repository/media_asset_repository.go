package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilothq/postpilot/internal/models"
)

type MediaAssetRepository interface {
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	// ListByDraftID returns the draft's media assets in attachment order.
	ListByDraftID(ctx context.Context, draftID string) ([]*models.MediaAsset, error)
	SetXMediaID(ctx context.Context, tx *sql.Tx, id, xMediaID string) error
	// GetBackup returns the in-database backup blob, nil when none is stored.
	GetBackup(ctx context.Context, id string) ([]byte, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

const mediaAssetColumns = `id, campaign_id, type, path, original_name, alt_text, x_media_id, storage_key, created_at`

func scanMediaAsset(row interface{ Scan(...any) error }) (*models.MediaAsset, error) {
	var m models.MediaAsset
	err := row.Scan(&m.ID, &m.CampaignID, &m.Type, &m.Path, &m.OriginalName,
		&m.AltText, &m.XMediaID, &m.StorageKey, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	query := `SELECT ` + mediaAssetColumns + ` FROM media_assets WHERE id = $1`
	m, err := scanMediaAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return m, nil
}

func (r *mediaAssetRepository) ListByDraftID(ctx context.Context, draftID string) ([]*models.MediaAsset, error) {
	query := `
		SELECT m.id, m.campaign_id, m.type, m.path, m.original_name, m.alt_text, m.x_media_id, m.storage_key, m.created_at
		FROM media_assets m
		JOIN draft_media_assets dma ON dma.media_asset_id = m.id
		WHERE dma.draft_id = $1
		ORDER BY dma.order_index ASC
	`
	rows, err := r.db.QueryContext(ctx, query, draftID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		m, err := scanMediaAsset(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, m)
	}
	return assets, rows.Err()
}

func (r *mediaAssetRepository) SetXMediaID(ctx context.Context, tx *sql.Tx, id, xMediaID string) error {
	query := `UPDATE media_assets SET x_media_id = $2 WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id, xMediaID)
	} else {
		_, err = r.db.ExecContext(ctx, query, id, xMediaID)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAssetRepository) GetBackup(ctx context.Context, id string) ([]byte, error) {
	query := `SELECT backup FROM media_assets WHERE id = $1`

	var backup []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&backup)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return backup, nil
}
