package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/service"
)

// refreshWindow is how far ahead of expiry credentials are renewed.
const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	oauth service.OAuthService
}

func NewTokenRefreshJob(oauth service.OAuthService) *TokenRefreshJob {
	return &TokenRefreshJob{oauth: oauth}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	refreshed, err := j.oauth.RefreshExpiring(ctx, refreshWindow)
	if err != nil {
		slog.Info(err.Error())
	}
	if refreshed > 0 {
		slog.Info("credentials refreshed", "count", refreshed)
	}
}
