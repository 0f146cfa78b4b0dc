package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/ratelimit"
)

type fakeScheduleRepo struct {
	schedules []*models.Schedule
}

func (f *fakeScheduleRepo) Create(ctx context.Context, tx *sql.Tx, s *models.Schedule) (string, error) {
	f.schedules = append(f.schedules, s)
	return s.ID, nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	for _, s := range f.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Schedule, error) {
	var out []*models.Schedule
	for _, s := range f.schedules {
		if s.CampaignID == campaignID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListStarted(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	var out []*models.Schedule
	for _, s := range f.schedules {
		if s.IsActive && !s.StartDate.After(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) SetActive(ctx context.Context, id string, active bool) error {
	for _, s := range f.schedules {
		if s.ID == id {
			s.IsActive = active
		}
	}
	return nil
}

type fakeDraftRepo struct {
	drafts []*models.Draft

	listDueCutoff time.Time
	listDueLimit  int
	pendingAfter  bool
}

func (f *fakeDraftRepo) Create(ctx context.Context, tx *sql.Tx, d *models.Draft) (string, error) {
	f.drafts = append(f.drafts, d)
	return d.ID, nil
}

func (f *fakeDraftRepo) GetByID(ctx context.Context, id string) (*models.Draft, error) {
	for _, d := range f.drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDraftRepo) GetByScheduleAndTime(ctx context.Context, scheduleID string, scheduledFor time.Time) (*models.Draft, error) {
	for _, d := range f.drafts {
		if d.ScheduleID != nil && *d.ScheduleID == scheduleID &&
			d.ScheduledFor != nil && d.ScheduledFor.Equal(scheduledFor) {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDraftRepo) GetTemplate(ctx context.Context, campaignID string, variantIndex int) (*models.Draft, error) {
	for _, d := range f.drafts {
		if d.CampaignID == campaignID && d.ScheduleID == nil && d.VariantIndex == variantIndex {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDraftRepo) GetAnyByCampaign(ctx context.Context, campaignID string) (*models.Draft, error) {
	for _, d := range f.drafts {
		if d.CampaignID == campaignID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDraftRepo) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]*models.Draft, error) {
	f.listDueCutoff = cutoff
	f.listDueLimit = limit

	var out []*models.Draft
	for _, d := range f.drafts {
		if d.Status == models.DraftStatusPending && d.ScheduledFor != nil && !d.ScheduledFor.After(cutoff) {
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDraftRepo) ListByCampaignID(ctx context.Context, campaignID string) ([]*models.Draft, error) {
	var out []*models.Draft
	for _, d := range f.drafts {
		if d.CampaignID == campaignID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDraftRepo) HasPendingAfter(ctx context.Context, scheduleID string, after time.Time) (bool, error) {
	if f.pendingAfter {
		return true, nil
	}
	for _, d := range f.drafts {
		if d.ScheduleID != nil && *d.ScheduleID == scheduleID &&
			d.Status == models.DraftStatusPending &&
			d.ScheduledFor != nil && d.ScheduledFor.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDraftRepo) SetPosted(ctx context.Context, tx *sql.Tx, id, xPostID string, postedAt time.Time) error {
	for _, d := range f.drafts {
		if d.ID == id {
			d.Status = models.DraftStatusPosted
			d.XPostID = xPostID
			d.PostedAt = &postedAt
		}
	}
	return nil
}

func (f *fakeDraftRepo) SetFailed(ctx context.Context, tx *sql.Tx, id, reason string) error {
	for _, d := range f.drafts {
		if d.ID == id {
			d.Status = models.DraftStatusFailed
			d.LastError = reason
		}
	}
	return nil
}

func (f *fakeDraftRepo) SetStatus(ctx context.Context, id, status string) error {
	for _, d := range f.drafts {
		if d.ID == id {
			d.Status = status
		}
	}
	return nil
}

type fakeDraftMediaRepo struct {
	assocs []*models.DraftMediaAsset
}

func (f *fakeDraftMediaRepo) Create(ctx context.Context, tx *sql.Tx, dma *models.DraftMediaAsset) error {
	f.assocs = append(f.assocs, dma)
	return nil
}

func (f *fakeDraftMediaRepo) ListByDraftID(ctx context.Context, draftID string) ([]*models.DraftMediaAsset, error) {
	var out []*models.DraftMediaAsset
	for _, a := range f.assocs {
		if a.DraftID == draftID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCampaignRepo struct {
	campaigns []*models.Campaign
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	for _, c := range f.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaignRepo) ListByUserID(ctx context.Context, userID string) ([]*models.Campaign, error) {
	var out []*models.Campaign
	for _, c := range f.campaigns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeMediaAssetRepo struct {
	assets  []*models.MediaAsset
	byDraft map[string][]*models.MediaAsset
}

func (f *fakeMediaAssetRepo) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	for _, a := range f.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeMediaAssetRepo) ListByDraftID(ctx context.Context, draftID string) ([]*models.MediaAsset, error) {
	return f.byDraft[draftID], nil
}

func (f *fakeMediaAssetRepo) SetXMediaID(ctx context.Context, tx *sql.Tx, id, xMediaID string) error {
	for _, a := range f.assets {
		if a.ID == id {
			a.XMediaID = xMediaID
		}
	}
	return nil
}

func (f *fakeMediaAssetRepo) GetBackup(ctx context.Context, id string) ([]byte, error) {
	return nil, nil
}

type fakePostLogRepo struct {
	logs []*models.PostLog
}

func (f *fakePostLogRepo) Create(ctx context.Context, tx *sql.Tx, pl *models.PostLog) (string, error) {
	f.logs = append(f.logs, pl)
	return pl.ID, nil
}

func (f *fakePostLogRepo) ListByCampaignID(ctx context.Context, campaignID string, limit int) ([]*models.PostLog, error) {
	return f.logs, nil
}

func (f *fakePostLogRepo) ListByDraftID(ctx context.Context, draftID string) ([]*models.PostLog, error) {
	var out []*models.PostLog
	for _, l := range f.logs {
		if l.DraftID != nil && *l.DraftID == draftID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeTokenService struct {
	token string
	err   error
	calls int
}

func (f *fakeTokenService) EnsureValidToken(ctx context.Context, userID string) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakeMediaService struct {
	errByAsset map[string]error
	uploads    []string
}

func (f *fakeMediaService) EnsureUploaded(ctx context.Context, tx *sql.Tx, accessToken string, asset *models.MediaAsset) (string, error) {
	if err := f.errByAsset[asset.ID]; err != nil {
		return "", err
	}
	if asset.XMediaID != "" {
		return asset.XMediaID, nil
	}
	f.uploads = append(f.uploads, asset.ID)
	return "media_" + asset.ID, nil
}

type publishCall struct {
	text     string
	mediaIDs []string
}

type fakeXClient struct {
	publishes  []publishCall
	publishErr error
	snapshot   *ratelimit.Snapshot
	nextID     int
}

func (f *fakeXClient) UploadMedia(ctx context.Context, accessToken string, data []byte, mimeType, category string) (string, error) {
	return fmt.Sprintf("upload_%d", len(f.publishes)), nil
}

func (f *fakeXClient) AddAltText(ctx context.Context, accessToken, mediaID, altText string) error {
	return nil
}

func (f *fakeXClient) PublishPost(ctx context.Context, accessToken, text string, mediaIDs []string) (string, *ratelimit.Snapshot, error) {
	f.publishes = append(f.publishes, publishCall{text: text, mediaIDs: mediaIDs})
	if f.publishErr != nil {
		return "", f.snapshot, f.publishErr
	}
	f.nextID++
	return fmt.Sprintf("post_%d", f.nextID), f.snapshot, nil
}
