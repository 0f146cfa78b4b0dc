package models

import "time"

type Campaign struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Language     string    `db:"language" json:"language"`
	Hashtags     []string  `db:"hashtags" json:"hashtags"`
	Tone         string    `db:"tone" json:"tone"`
	CallToAction string    `db:"call_to_action" json:"call_to_action"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
