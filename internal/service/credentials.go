package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

// ResolvedAccount is a stored account with its tokens decrypted.
type ResolvedAccount struct {
	Account     *models.SocialAccount
	Credentials platform.Credentials
}

// CredentialResolver picks the account a publish attempt uses for one
// platform. It returns nil, nil when the user has no usable account.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID int64, platformID string) (*ResolvedAccount, error)
}

type firstActiveResolver struct {
	sa        repository.SocialAccountRepository
	secretKey []byte
}

// NewFirstActiveResolver returns the oldest active account of the platform.
func NewFirstActiveResolver(sa repository.SocialAccountRepository, secretKey string) CredentialResolver {
	return &firstActiveResolver{sa: sa, secretKey: []byte(secretKey)}
}

func (r *firstActiveResolver) Resolve(ctx context.Context, userID int64, platformID string) (*ResolvedAccount, error) {
	accounts, err := r.sa.ListActiveByUserAndPlatform(ctx, userID, platformID)
	if err != nil {
		return nil, fmt.Errorf("error listing %s accounts: %w", platformID, err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	acc := accounts[0]
	creds, err := DecryptCredentials(acc, r.secretKey)
	if err != nil {
		return nil, err
	}
	return &ResolvedAccount{Account: acc, Credentials: creds}, nil
}

func DecryptCredentials(acc *models.SocialAccount, secretKey []byte) (platform.Credentials, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, secretKey)
	if err != nil {
		return platform.Credentials{}, fmt.Errorf("error decrypting access token of account %d: %w", acc.ID, err)
	}

	var refreshToken string
	if acc.RefreshToken != "" {
		refreshToken, err = utils.Decrypt(acc.RefreshToken, secretKey)
		if err != nil {
			return platform.Credentials{}, fmt.Errorf("error decrypting refresh token of account %d: %w", acc.ID, err)
		}
	}

	return platform.Credentials{
		AccountID:    acc.AccountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
