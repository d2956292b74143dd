package models

import "time"

type Metrics struct {
	Likes       int64 `db:"likes" json:"likes"`
	Shares      int64 `db:"shares" json:"shares"`
	Comments    int64 `db:"comments" json:"comments"`
	Impressions int64 `db:"impressions" json:"impressions"`
}

func (m Metrics) Add(o Metrics) Metrics {
	return Metrics{
		Likes:       m.Likes + o.Likes,
		Shares:      m.Shares + o.Shares,
		Comments:    m.Comments + o.Comments,
		Impressions: m.Impressions + o.Impressions,
	}
}

type PlatformAnalytics struct {
	PostID   int64     `db:"post_id" json:"post_id"`
	Platform string    `db:"platform" json:"platform"`
	Metrics  Metrics   `json:"metrics"`
	SyncedAt time.Time `db:"synced_at" json:"synced_at"`
}

// PostAnalytics is the sum of the latest stored metrics of every platform of a post.
type PostAnalytics struct {
	PostID       int64               `json:"post_id"`
	Metrics      Metrics             `json:"metrics"`
	Platforms    []PlatformAnalytics `json:"platforms"`
	LastSyncedAt *time.Time          `json:"last_synced_at"`
}

func AggregateAnalytics(postID int64, rows []*PlatformAnalytics) *PostAnalytics {
	pa := &PostAnalytics{PostID: postID, Platforms: []PlatformAnalytics{}}
	for _, row := range rows {
		pa.Metrics = pa.Metrics.Add(row.Metrics)
		pa.Platforms = append(pa.Platforms, *row)
		if pa.LastSyncedAt == nil || row.SyncedAt.After(*pa.LastSyncedAt) {
			t := row.SyncedAt
			pa.LastSyncedAt = &t
		}
	}
	return pa
}
