package transfer

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	ScheduleActionSchedule   = "schedule"
	ScheduleActionCancel     = "cancel"
	ScheduleActionReschedule = "reschedule"
)

type PostCreation struct {
	Content     string     `json:"content"`
	MediaURLs   []string   `json:"media_urls"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	PublishNow  bool       `json:"publish_now"`
}

func (pc PostCreation) Validate() error {
	return validation.ValidateStruct(&pc,
		validation.Field(&pc.Content, validation.Required),
		validation.Field(&pc.Platforms, validation.Required),
		validation.Field(&pc.MediaURLs, validation.Each(validation.Required)),
		validation.Field(&pc.ScheduledAt, validation.When(pc.PublishNow, validation.Nil.Error("must be empty when publishing now"))),
	)
}

type ScheduleRequest struct {
	PostID      int64      `json:"post_id"`
	Action      string     `json:"action"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (sr ScheduleRequest) Validate() error {
	return validation.ValidateStruct(&sr,
		validation.Field(&sr.PostID, validation.Required, validation.Min(int64(1))),
		validation.Field(&sr.Action, validation.Required,
			validation.In(ScheduleActionSchedule, ScheduleActionCancel, ScheduleActionReschedule)),
		validation.Field(&sr.ScheduledAt, validation.When(sr.Action != ScheduleActionCancel, validation.Required)),
	)
}

type PostList struct {
	Posts  []*models.Post `json:"posts"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
