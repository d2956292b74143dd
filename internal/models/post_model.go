package models

import (
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Content     string          `db:"content" json:"content"`
	MediaURLs   pq.StringArray  `db:"media_urls" json:"media_urls"`
	Platforms   pq.StringArray  `db:"platforms" json:"platforms"`
	Status      string          `db:"status" json:"status"` // draft, scheduled, publishing, published, failed
	ScheduledAt *time.Time      `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt *time.Time      `db:"published_at" json:"published_at"`
	LastError   PlatformResults `db:"last_error" json:"last_error"`
	Analytics   *PostAnalytics  `db:"-" json:"analytics,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// IsTerminal reports whether the status is only left through an explicit reschedule.
func IsTerminal(status string) bool {
	return status == PostStatusPublished || status == PostStatusFailed
}

func IsValidStatus(status string) bool {
	switch status {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublishing, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.MediaURLs = append(pq.StringArray(nil), p.MediaURLs...)
	c.Platforms = append(pq.StringArray(nil), p.Platforms...)
	c.LastError = append(PlatformResults(nil), p.LastError...)
	if p.ScheduledAt != nil {
		t := *p.ScheduledAt
		c.ScheduledAt = &t
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	if p.Analytics != nil {
		a := *p.Analytics
		a.Platforms = append([]PlatformAnalytics(nil), p.Analytics.Platforms...)
		c.Analytics = &a
	}
	return &c
}
