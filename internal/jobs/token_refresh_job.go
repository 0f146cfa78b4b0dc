package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

// TokenRefreshJob proactively refreshes X accounts whose tokens expire soon,
// so scheduled posts do not pay the refresh round-trip at publish time.
type TokenRefreshJob struct {
	xa     repository.XAccountRepository
	tokens service.TokenService
}

func NewTokenRefreshJob(xa repository.XAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{xa: xa, tokens: tokens}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.xa.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.XAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.tokens.EnsureValidToken(ctx, acc.UserID); err != nil {
				slog.Info("unable to refresh x tokens", "user_id", acc.UserID, "error", err)
			}
		}(acc)
	}

	wg.Wait()
}
