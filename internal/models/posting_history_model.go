package models

import "time"

// PostingHistory records one platform result of one publish attempt.
// Rows of the same attempt share AttemptID.
type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	AttemptID    string    `db:"attempt_id" json:"attempt_id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Platform     string    `db:"platform" json:"platform"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	Success      bool      `db:"success" json:"success"`
	ExternalID   string    `db:"external_id" json:"external_id"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
