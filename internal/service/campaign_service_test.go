package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCampaigns struct {
	campaign *models.Campaign
}

func (f *fakeCampaigns) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	if f.campaign != nil && f.campaign.ID == id {
		return f.campaign, nil
	}
	return nil, nil
}

func (f *fakeCampaigns) ListByUserID(ctx context.Context, userID string) ([]*models.Campaign, error) {
	return nil, nil
}

type fakeSchedules struct {
	created *models.Schedule
}

func (f *fakeSchedules) Create(ctx context.Context, tx *sql.Tx, s *models.Schedule) (string, error) {
	f.created = s
	return s.ID, nil
}

func (f *fakeSchedules) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	return nil, nil
}

func (f *fakeSchedules) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Schedule, error) {
	return nil, nil
}

func (f *fakeSchedules) ListStarted(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	return nil, nil
}

func (f *fakeSchedules) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

type fakeDrafts struct {
	draft *models.Draft
}

func (f *fakeDrafts) Create(ctx context.Context, tx *sql.Tx, d *models.Draft) (string, error) {
	return d.ID, nil
}

func (f *fakeDrafts) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	if f.draft != nil && f.draft.ID == id {
		return f.draft, nil
	}
	return nil, nil
}

func (f *fakeDrafts) GetByScheduleAndTime(ctx context.Context, scheduleID string, scheduledFor time.Time) (*models.Draft, error) {
	return nil, nil
}

func (f *fakeDrafts) GetTemplate(ctx context.Context, campaignID string, variantIndex int) (*models.Draft, error) {
	return nil, nil
}

func (f *fakeDrafts) GetAnyByCampaign(ctx context.Context, campaignID string) (*models.Draft, error) {
	return nil, nil
}

func (f *fakeDrafts) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*models.Draft, error) {
	return nil, nil
}

func (f *fakeDrafts) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Draft, error) {
	return nil, nil
}

func (f *fakeDrafts) HasPendingAfter(ctx context.Context, scheduleID string, after time.Time) (bool, error) {
	return false, nil
}

func (f *fakeDrafts) SetPosted(ctx context.Context, tx *sql.Tx, id, xPostID string, postedAt time.Time) error {
	return nil
}

func (f *fakeDrafts) SetFailed(ctx context.Context, tx *sql.Tx, id, reason string) error {
	return nil
}

func (f *fakeDrafts) SetStatus(ctx context.Context, id, status string) error {
	return nil
}

func validCreation() *transfer.ScheduleCreation {
	return &transfer.ScheduleCreation{
		CampaignID: "c1",
		Timezone:   "Europe/Istanbul",
		Times:      []string{"09:00", "18:30"},
		Recurrence: models.RecurrenceDaily,
		StartDate:  "2025-06-01",
		AutoPost:   true,
	}
}

func newCampaignService(sr *fakeSchedules, dr *fakeDrafts) CampaignService {
	return NewCampaignService(&fakeCampaigns{campaign: &models.Campaign{ID: "c1", UserID: "u1"}}, sr, dr, nil)
}

func TestCreateScheduleDefaults(t *testing.T) {
	sr := &fakeSchedules{}
	svc := newCampaignService(sr, &fakeDrafts{})

	id, err := svc.CreateSchedule(context.Background(), validCreation())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NotNil(t, sr.created)
	assert.True(t, sr.created.IsActive)
	assert.Equal(t, 120, sr.created.PostIntervalMin)
	assert.Equal(t, 300, sr.created.PostIntervalMax)
	assert.Equal(t, 2, sr.created.DailyLimit)
}

func TestCreateScheduleValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*transfer.ScheduleCreation)
		want   string
	}{
		{"unknown campaign", func(sc *transfer.ScheduleCreation) { sc.CampaignID = "nope" }, "not found"},
		{"bad timezone", func(sc *transfer.ScheduleCreation) { sc.Timezone = "Mars/Olympus" }, "timezone"},
		{"no times", func(sc *transfer.ScheduleCreation) { sc.Times = nil }, "posting time"},
		{"bad time format", func(sc *transfer.ScheduleCreation) { sc.Times = []string{"9am"} }, "HH:MM"},
		{"bad recurrence", func(sc *transfer.ScheduleCreation) { sc.Recurrence = "weekly" }, "recurrence"},
		{"bad start date", func(sc *transfer.ScheduleCreation) { sc.StartDate = "01-06-2025" }, "start date"},
		{"end before start", func(sc *transfer.ScheduleCreation) { sc.EndDate = "2025-05-01" }, "precedes"},
		{"inverted interval", func(sc *transfer.ScheduleCreation) { sc.PostIntervalMin = 300; sc.PostIntervalMax = 120 }, "interval"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newCampaignService(&fakeSchedules{}, &fakeDrafts{})
			sc := validCreation()
			tc.mutate(sc)

			_, err := svc.CreateSchedule(context.Background(), sc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDraftForPublish(t *testing.T) {
	dr := &fakeDrafts{draft: &models.Draft{ID: "d1", Status: models.DraftStatusPending}}
	svc := newCampaignService(&fakeSchedules{}, dr)

	draft, err := svc.DraftForPublish(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", draft.ID)

	_, err = svc.DraftForPublish(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	dr.draft.Status = models.DraftStatusPosted
	_, err = svc.DraftForPublish(context.Background(), "d1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending")
}
