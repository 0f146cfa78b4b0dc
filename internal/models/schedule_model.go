package models

import "time"

type Schedule struct {
	ID                   string     `db:"id" json:"id"`
	CampaignID           string     `db:"campaign_id" json:"campaign_id"`
	Timezone             string     `db:"timezone" json:"timezone"`
	Times                []string   `db:"times" json:"times"` // "HH:MM" local time-of-day slots
	Recurrence           string     `db:"recurrence" json:"recurrence"`
	StartDate            time.Time  `db:"start_date" json:"start_date"`
	EndDate              *time.Time `db:"end_date" json:"end_date"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	AutoPost             bool       `db:"auto_post" json:"auto_post"`
	DailyLimit           int        `db:"daily_limit" json:"daily_limit"`
	SelectedVariantIndex int        `db:"selected_variant_index" json:"selected_variant_index"`
	PostIntervalMin      int        `db:"post_interval_min" json:"post_interval_min"` // seconds
	PostIntervalMax      int        `db:"post_interval_max" json:"post_interval_max"` // seconds
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

const (
	RecurrenceDaily = "daily"
	RecurrenceOnce  = "once"
)
