package models

import "time"

type Draft struct {
	ID           string     `db:"id" json:"id"`
	CampaignID   string     `db:"campaign_id" json:"campaign_id"`
	ScheduleID   *string    `db:"schedule_id" json:"schedule_id"`     // nil means unscheduled template
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for"` // absolute UTC publish instant
	VariantIndex int        `db:"variant_index" json:"variant_index"`
	Text         string     `db:"text" json:"text"`
	CharCount    int        `db:"char_count" json:"char_count"`
	HashtagsUsed []string   `db:"hashtags_used" json:"hashtags_used"`
	Status       string     `db:"status" json:"status"`
	LastError    string     `db:"last_error" json:"last_error"`
	XPostID      string     `db:"x_post_id" json:"x_post_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	PostedAt     *time.Time `db:"posted_at" json:"posted_at"`
}

// IsTemplate reports whether the draft is an unscheduled template variant.
func (d *Draft) IsTemplate() bool {
	return d.ScheduleID == nil
}

type DraftMediaAsset struct {
	ID           string    `db:"id" json:"id"`
	DraftID      string    `db:"draft_id" json:"draft_id"`
	MediaAssetID string    `db:"media_asset_id" json:"media_asset_id"`
	OrderIndex   int       `db:"order_index" json:"order_index"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	DraftStatusPending = "pending"
	DraftStatusPosted  = "posted"
	DraftStatusFailed  = "failed"
	DraftStatusSkipped = "skipped"
)
