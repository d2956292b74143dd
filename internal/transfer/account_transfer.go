package transfer

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AccountConnection carries tokens obtained by an OAuth flow that ran elsewhere.
type AccountConnection struct {
	Platform        string    `json:"platform"`
	AccountID       string    `json:"account_id"`
	AccountName     string    `json:"account_name"`
	AccountUsername string    `json:"account_username"`
	ProfilePicture  string    `json:"profile_picture"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	TokenExpiresAt  time.Time `json:"token_expires_at"`
}

func (ac AccountConnection) Validate() error {
	return validation.ValidateStruct(&ac,
		validation.Field(&ac.Platform, validation.Required),
		validation.Field(&ac.AccountID, validation.Required),
		validation.Field(&ac.AccessToken, validation.Required),
	)
}
