package models

import "time"

// XAccount holds the connected X credentials for a user. Access and refresh
// tokens are AES-GCM encrypted at rest.
type XAccount struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	XUserID        string    `db:"x_user_id" json:"x_user_id"`
	XUsername      string    `db:"x_username" json:"x_username"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
