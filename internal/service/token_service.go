package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
	"golang.org/x/oauth2"
)

// ErrAuth marks authentication failures: missing account, undecryptable
// credentials, or a rejected refresh exchange. Callers must fail the post
// attempt instead of publishing with a stale token.
var ErrAuth = errors.New("x authentication failed")

// tokenExpiryBuffer refreshes slightly early so a token cannot expire in the
// middle of a chunked upload.
const tokenExpiryBuffer = 5 * time.Minute

type TokenService interface {
	// EnsureValidToken returns a usable bearer token for the user's X
	// account, refreshing and persisting rotated credentials when the stored
	// token is near expiry.
	EnsureValidToken(ctx context.Context, userID string) (string, error)
}

type xTokenService struct {
	cfg   config.Config
	xa    repository.XAccountRepository
	oauth *oauth2.Config
	now   func() time.Time
}

func NewTokenService(cfg config.Config, xa repository.XAccountRepository) TokenService {
	return &xTokenService{
		cfg: cfg,
		xa:  xa,
		oauth: &oauth2.Config{
			ClientID:     cfg.XClientID,
			ClientSecret: cfg.XClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.XTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		now: time.Now,
	}
}

func (s *xTokenService) EnsureValidToken(ctx context.Context, userID string) (string, error) {
	account, err := s.xa.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if account == nil || account.AccessToken == "" {
		return "", fmt.Errorf("%w: no connected x account for user %s", ErrAuth, userID)
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%w: decrypt access token: %v", ErrAuth, err)
	}

	// Sandbox mode never talks to the token endpoint and ignores expiry.
	if s.cfg.MockPosting {
		return accessToken, nil
	}

	if s.now().Add(tokenExpiryBuffer).Before(account.TokenExpiresAt) {
		return accessToken, nil
	}

	refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%w: decrypt refresh token: %v", ErrAuth, err)
	}

	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh exchange: %v", ErrAuth, err)
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	// X rotates refresh tokens; keep the old one when the response omits it.
	var encryptedRefresh string
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return "", err
		}
	}

	if err := s.xa.SetTokens(ctx, account.ID, encryptedAccess, encryptedRefresh, token.Expiry); err != nil {
		return "", err
	}

	slog.Info("refreshed x tokens", "user_id", userID, "expires_at", token.Expiry)
	return token.AccessToken, nil
}
