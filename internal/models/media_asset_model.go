package models

import "time"

type MediaAsset struct {
	ID           string    `db:"id" json:"id"`
	CampaignID   string    `db:"campaign_id" json:"campaign_id"`
	Type         string    `db:"type" json:"type"`
	Path         string    `db:"path" json:"path"`
	OriginalName string    `db:"original_name" json:"original_name"`
	AltText      string    `db:"alt_text" json:"alt_text"`
	XMediaID     string    `db:"x_media_id" json:"x_media_id"`   // cached platform reference, set on first upload
	StorageKey   string    `db:"storage_key" json:"storage_key"` // object-store mirror key, empty if never mirrored
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)
