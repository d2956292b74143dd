package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"golang.org/x/oauth2"
)

const (
	refreshWindow         = 30 * time.Minute
	refreshConcurrency    = 10
	fallbackTokenLifetime = 3600
)

type TokenRefreshJob struct {
	sr        repository.SocialAccountRepository
	registry  *platform.Registry
	secretKey []byte
	now       func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, registry *platform.Registry, secretKey string) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:        sr,
		registry:  registry,
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	n := c.Run(context.Background())
	if n > 0 {
		slog.Info("refreshed social account tokens", "count", n)
	}
}

// Run refreshes every token expiring within the next 30 minutes and returns
// how many were written back.
func (c *TokenRefreshJob) Run(ctx context.Context) int {
	currentTime := c.now()

	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, currentTime.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		refreshed atomic.Int64
	)
	semaphore := make(chan struct{}, refreshConcurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if c.refresh(ctx, acc) {
				refreshed.Add(1)
			}
		}(acc)
	}

	wg.Wait()
	return int(refreshed.Load())
}

func (c *TokenRefreshJob) refresh(ctx context.Context, acc *models.SocialAccount) bool {
	adapter, ok := c.registry.Get(acc.Platform)
	if !ok {
		return false
	}
	refresher, ok := adapter.(platform.TokenRefresher)
	if !ok {
		return false
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, c.secretKey)
	if err != nil {
		slog.Info("unable to decrypt refresh token", "account_id", acc.ID, "error", err)
		return false
	}

	token, err := refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.ErrorCode == "invalid_grant" {
			slog.Warn("refresh token revoked, deactivating account", "account_id", acc.ID, "platform", acc.Platform)
			if err := c.sr.Deactivate(ctx, acc.ID); err != nil {
				slog.Error("error deactivating account", "account_id", acc.ID, "error", err)
			}
			return false
		}
		slog.Info("unable to refresh token", "account_id", acc.ID, "platform", acc.Platform, "error", err)
		return false
	}

	update := &models.SocialAccount{TokenExpiresAt: token.Expiry}
	if update.TokenExpiresAt.IsZero() {
		update.TokenExpiresAt = service.GetExpiresAt(fallbackTokenLifetime)
	}

	update.AccessToken, err = utils.Encrypt([]byte(token.AccessToken), c.secretKey)
	if err != nil {
		slog.Info(err.Error())
		return false
	}
	if token.RefreshToken != "" {
		update.RefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), c.secretKey)
		if err != nil {
			slog.Info(err.Error())
			return false
		}
	}

	err = c.sr.SetToken(ctx, acc.ID, acc.AccessToken, update)
	if errors.Is(err, repository.ErrTokenChanged) {
		slog.Info("token changed while refreshing, keeping the newer one", "account_id", acc.ID)
		return false
	}
	if err != nil {
		slog.Error("error saving refreshed token", "account_id", acc.ID, "error", err)
		return false
	}
	return true
}
