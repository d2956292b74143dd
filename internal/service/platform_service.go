package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

// defaultTokenLifetime applies when a connection does not say when its token expires.
const defaultTokenLifetime = 60 * 24 * 3600

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Connect(ctx context.Context, userID int64, ac *transfer.AccountConnection) (*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	sa        repository.SocialAccountRepository
	registry  *platform.Registry
	secretKey []byte
}

func NewPlatformService(sa repository.SocialAccountRepository, registry *platform.Registry, secretKey string) PlatformService {
	return &platformService{
		sa:        sa,
		registry:  registry,
		secretKey: []byte(secretKey),
	}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}
	if accounts == nil {
		accounts = []*models.SocialAccount{}
	}
	return accounts, nil
}

func (s *platformService) Connect(ctx context.Context, userID int64, ac *transfer.AccountConnection) (*models.SocialAccount, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if ac == nil {
		return nil, fmt.Errorf("%w: account data is nil", ErrInvalidInput)
	}
	if err := ac.Validate(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	platformID := strings.ToLower(strings.TrimSpace(ac.Platform))
	if !s.registry.Supports(platformID) {
		return nil, fmt.Errorf("%w: platform %q is not supported", ErrInvalidInput, ac.Platform)
	}

	accessToken, err := utils.Encrypt([]byte(ac.AccessToken), s.secretKey)
	if err != nil {
		return nil, fmt.Errorf("error encrypting access token: %w", err)
	}

	var refreshToken string
	if ac.RefreshToken != "" {
		refreshToken, err = utils.Encrypt([]byte(ac.RefreshToken), s.secretKey)
		if err != nil {
			return nil, fmt.Errorf("error encrypting refresh token: %w", err)
		}
	}

	expiresAt := ac.TokenExpiresAt
	if expiresAt.IsZero() {
		expiresAt = GetExpiresAt(defaultTokenLifetime)
	}

	account := &models.SocialAccount{
		UserID:          userID,
		Platform:        platformID,
		AccountID:       ac.AccountID,
		AccountName:     ac.AccountName,
		AccountUsername: ac.AccountUsername,
		ProfilePicture:  ac.ProfilePicture,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenExpiresAt:  expiresAt.UTC().Truncate(time.Second),
		IsActive:        true,
	}

	account.ID, err = s.sa.Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("error saving social account: %w", err)
	}
	slog.Info("social account connected", "user_id", userID, "platform", platformID, "account_id", account.ID)

	return account, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	if userID == 0 {
		return fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if accountID == 0 {
		return fmt.Errorf("%w: account id is not valid", ErrInvalidInput)
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		slog.Info("social account doesn't exist", "account_id", accountID, "user_id", userID)
		return ErrNotFound
	}

	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("error removing social account: %w", err)
	}
	return nil
}
