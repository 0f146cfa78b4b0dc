package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
)

type DraftRepository interface {
	Create(ctx context.Context, tx *sql.Tx, d *models.Draft) (string, error)
	GetByID(ctx context.Context, id string) (*models.Draft, error)
	// GetByScheduleAndTime is the materializer's idempotence check: at most one
	// draft exists per (schedule_id, scheduled_for).
	GetByScheduleAndTime(ctx context.Context, scheduleID string, scheduledFor time.Time) (*models.Draft, error)
	// GetTemplate returns the unscheduled template draft for a variant.
	GetTemplate(ctx context.Context, campaignID string, variantIndex int) (*models.Draft, error)
	GetAnyByCampaign(ctx context.Context, campaignID string) (*models.Draft, error)
	// ListDue returns pending drafts with scheduled_for <= cutoff, oldest first.
	ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*models.Draft, error)
	ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Draft, error)
	// HasPendingAfter reports whether the schedule has pending drafts scheduled
	// past the given instant (i.e. pre-created by absolute-timestamp scheduling).
	HasPendingAfter(ctx context.Context, scheduleID string, after time.Time) (bool, error)
	SetPosted(ctx context.Context, tx *sql.Tx, id, xPostID string, postedAt time.Time) error
	SetFailed(ctx context.Context, tx *sql.Tx, id, reason string) error
	SetStatus(ctx context.Context, id, status string) error
}

type draftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) DraftRepository {
	return &draftRepository{db: db}
}

const draftColumns = `id, campaign_id, schedule_id, scheduled_for, variant_index, text, char_count,
	hashtags_used, status, last_error, x_post_id, created_at, posted_at`

func scanDraft(row interface{ Scan(...any) error }) (*models.Draft, error) {
	var d models.Draft
	err := row.Scan(&d.ID, &d.CampaignID, &d.ScheduleID, &d.ScheduledFor, &d.VariantIndex,
		&d.Text, &d.CharCount, pq.Array(&d.HashtagsUsed), &d.Status, &d.LastError,
		&d.XPostID, &d.CreatedAt, &d.PostedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *draftRepository) Create(ctx context.Context, tx *sql.Tx, d *models.Draft) (string, error) {
	query := `
		INSERT INTO drafts (id, campaign_id, schedule_id, scheduled_for, variant_index, text,
			char_count, hashtags_used, status, last_error, x_post_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	var id string
	var err error
	args := []any{d.ID, d.CampaignID, d.ScheduleID, d.ScheduledFor, d.VariantIndex, d.Text,
		d.CharCount, pq.Array(d.HashtagsUsed), d.Status, d.LastError, d.XPostID}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *draftRepository) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *draftRepository) GetByScheduleAndTime(ctx context.Context, scheduleID string, scheduledFor time.Time) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE schedule_id = $1 AND scheduled_for = $2`
	return r.get(ctx, query, scheduleID, scheduledFor)
}

func (r *draftRepository) GetTemplate(ctx context.Context, campaignID string, variantIndex int) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts
		WHERE campaign_id = $1 AND variant_index = $2 AND schedule_id IS NULL
		LIMIT 1`
	return r.get(ctx, query, campaignID, variantIndex)
}

func (r *draftRepository) GetAnyByCampaign(ctx context.Context, campaignID string) (*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE campaign_id = $1 ORDER BY created_at LIMIT 1`
	return r.get(ctx, query, campaignID)
}

func (r *draftRepository) get(ctx context.Context, query string, args ...any) (*models.Draft, error) {
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return d, nil
}

func (r *draftRepository) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts
		WHERE status = $1 AND scheduled_for IS NOT NULL AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
		LIMIT $3`
	return r.list(ctx, query, models.DraftStatusPending, cutoff, limit)
}

func (r *draftRepository) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE campaign_id = $1 ORDER BY created_at`
	return r.list(ctx, query, campaignID)
}

func (r *draftRepository) list(ctx context.Context, query string, args ...any) ([]*models.Draft, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var drafts []*models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (r *draftRepository) HasPendingAfter(ctx context.Context, scheduleID string, after time.Time) (bool, error) {
	query := `SELECT 1 FROM drafts
		WHERE schedule_id = $1 AND status = $2 AND scheduled_for IS NOT NULL AND scheduled_for > $3
		LIMIT 1`

	var result int
	err := r.db.QueryRowContext(ctx, query, scheduleID, models.DraftStatusPending, after).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *draftRepository) SetPosted(ctx context.Context, tx *sql.Tx, id, xPostID string, postedAt time.Time) error {
	query := `UPDATE drafts SET status = $2, x_post_id = $3, posted_at = $4, last_error = '' WHERE id = $1`
	return r.exec(ctx, tx, query, id, models.DraftStatusPosted, xPostID, postedAt)
}

func (r *draftRepository) SetFailed(ctx context.Context, tx *sql.Tx, id, reason string) error {
	query := `UPDATE drafts SET status = $2, last_error = $3 WHERE id = $1`
	return r.exec(ctx, tx, query, id, models.DraftStatusFailed, reason)
}

func (r *draftRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `UPDATE drafts SET status = $2 WHERE id = $1`
	return r.exec(ctx, nil, query, id, status)
}

func (r *draftRepository) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
