package service

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type CampaignService interface {
	CreateSchedule(ctx context.Context, sc *transfer.ScheduleCreation) (string, error)
	ListSchedules(ctx context.Context, campaignID string) ([]*models.Schedule, error)
	ListDrafts(ctx context.Context, campaignID string) ([]*models.Draft, error)
	ListLogs(ctx context.Context, campaignID string, limit int) ([]*models.PostLog, error)
	// DraftForPublish validates that the draft can be posted right now.
	DraftForPublish(ctx context.Context, draftID string) (*models.Draft, error)
}

type campaignService struct {
	cr repository.CampaignRepository
	sr repository.ScheduleRepository
	dr repository.DraftRepository
	pl repository.PostLogRepository
}

func NewCampaignService(
	cr repository.CampaignRepository,
	sr repository.ScheduleRepository,
	dr repository.DraftRepository,
	pl repository.PostLogRepository,
) CampaignService {
	return &campaignService{cr: cr, sr: sr, dr: dr, pl: pl}
}

func (s *campaignService) CreateSchedule(ctx context.Context, sc *transfer.ScheduleCreation) (string, error) {
	campaign, err := s.cr.GetByID(ctx, sc.CampaignID)
	if err != nil {
		return "", err
	}
	if campaign == nil {
		return "", fmt.Errorf("campaign %s not found", sc.CampaignID)
	}

	if _, err := time.LoadLocation(sc.Timezone); err != nil {
		return "", fmt.Errorf("invalid timezone %q", sc.Timezone)
	}

	if len(sc.Times) == 0 {
		return "", fmt.Errorf("at least one posting time is required")
	}
	for _, t := range sc.Times {
		if _, err := time.Parse("15:04", t); err != nil {
			return "", fmt.Errorf("invalid posting time %q, expected HH:MM", t)
		}
	}

	if sc.Recurrence != models.RecurrenceDaily && sc.Recurrence != models.RecurrenceOnce {
		return "", fmt.Errorf("invalid recurrence %q", sc.Recurrence)
	}

	startDate, err := time.Parse("2006-01-02", sc.StartDate)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q, expected YYYY-MM-DD", sc.StartDate)
	}
	var endDate *time.Time
	if sc.EndDate != "" {
		e, err := time.Parse("2006-01-02", sc.EndDate)
		if err != nil {
			return "", fmt.Errorf("invalid end date %q, expected YYYY-MM-DD", sc.EndDate)
		}
		if e.Before(startDate) {
			return "", fmt.Errorf("end date precedes start date")
		}
		endDate = &e
	}

	intervalMin, intervalMax := sc.PostIntervalMin, sc.PostIntervalMax
	if intervalMin == 0 && intervalMax == 0 {
		intervalMin, intervalMax = 120, 300
	}
	if intervalMin < 0 || intervalMax < intervalMin {
		return "", fmt.Errorf("invalid post interval bounds [%d, %d]", intervalMin, intervalMax)
	}

	dailyLimit := sc.DailyLimit
	if dailyLimit <= 0 {
		dailyLimit = len(sc.Times)
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	return s.sr.Create(ctx, nil, &models.Schedule{
		ID:                   id,
		CampaignID:           sc.CampaignID,
		Timezone:             sc.Timezone,
		Times:                sc.Times,
		Recurrence:           sc.Recurrence,
		StartDate:            startDate,
		EndDate:              endDate,
		IsActive:             true,
		AutoPost:             sc.AutoPost,
		DailyLimit:           dailyLimit,
		SelectedVariantIndex: sc.SelectedVariantIndex,
		PostIntervalMin:      intervalMin,
		PostIntervalMax:      intervalMax,
	})
}

func (s *campaignService) ListSchedules(ctx context.Context, campaignID string) ([]*models.Schedule, error) {
	return s.sr.ListByCampaignID(ctx, campaignID)
}

func (s *campaignService) ListDrafts(ctx context.Context, campaignID string) ([]*models.Draft, error) {
	return s.dr.ListByCampaignID(ctx, campaignID)
}

func (s *campaignService) ListLogs(ctx context.Context, campaignID string, limit int) ([]*models.PostLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.pl.ListByCampaignID(ctx, campaignID, limit)
}

func (s *campaignService) DraftForPublish(ctx context.Context, draftID string) (*models.Draft, error) {
	draft, err := s.dr.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, fmt.Errorf("draft %s not found", draftID)
	}
	if draft.Status != models.DraftStatusPending {
		return nil, fmt.Errorf("draft %s is %s, only pending drafts can be posted", draftID, draft.Status)
	}
	return draft, nil
}
