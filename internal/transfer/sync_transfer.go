package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type SyncSnapshot struct {
	Posts    []*models.Post          `json:"posts"`
	Accounts []*models.SocialAccount `json:"accounts"`
	SyncedAt time.Time               `json:"synced_at"`
}

type SyncConflicts struct {
	Since time.Time      `json:"since"`
	Posts []*models.Post `json:"posts"`
}
