package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
)

type ScheduleRepository interface {
	Create(ctx context.Context, tx *sql.Tx, s *models.Schedule) (string, error)
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Schedule, error)
	// ListStarted returns active schedules whose validity window has begun.
	// End-date filtering stays in the scanner so it is covered by unit tests.
	ListStarted(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, campaign_id, timezone, times, recurrence, start_date, end_date,
	is_active, auto_post, daily_limit, selected_variant_index, post_interval_min, post_interval_max, created_at`

func scanSchedule(row interface{ Scan(...any) error }) (*models.Schedule, error) {
	var s models.Schedule
	err := row.Scan(&s.ID, &s.CampaignID, &s.Timezone, pq.Array(&s.Times), &s.Recurrence,
		&s.StartDate, &s.EndDate, &s.IsActive, &s.AutoPost, &s.DailyLimit,
		&s.SelectedVariantIndex, &s.PostIntervalMin, &s.PostIntervalMax, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, tx *sql.Tx, s *models.Schedule) (string, error) {
	query := `
		INSERT INTO schedules (id, campaign_id, timezone, times, recurrence, start_date, end_date,
			is_active, auto_post, daily_limit, selected_variant_index, post_interval_min, post_interval_max)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	var id string
	var err error
	args := []any{s.ID, s.CampaignID, s.Timezone, pq.Array(s.Times), s.Recurrence, s.StartDate, s.EndDate,
		s.IsActive, s.AutoPost, s.DailyLimit, s.SelectedVariantIndex, s.PostIntervalMin, s.PostIntervalMax}

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

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE campaign_id = $1 ORDER BY created_at`
	return r.list(ctx, query, campaignID)
}

func (r *scheduleRepository) ListStarted(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE is_active = TRUE AND start_date <= $1`
	return r.list(ctx, query, now)
}

func (r *scheduleRepository) list(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func (r *scheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE schedules SET is_active = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
