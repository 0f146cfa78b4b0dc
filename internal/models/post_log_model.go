package models

import "time"

// PostLog is the append-only audit record of scheduler actions. Rows are
// never updated or deleted.
type PostLog struct {
	ID         string         `db:"id" json:"id"`
	CampaignID string         `db:"campaign_id" json:"campaign_id"`
	DraftID    *string        `db:"draft_id" json:"draft_id"`
	RunAt      time.Time      `db:"run_at" json:"run_at"`
	Action     string         `db:"action" json:"action"`
	Details    map[string]any `db:"details" json:"details"`
}

const (
	PostLogActionGenerated = "generated"
	PostLogActionScheduled = "scheduled"
	PostLogActionPosted    = "posted"
	PostLogActionFailed    = "failed"
	PostLogActionSkipped   = "skipped"
)
