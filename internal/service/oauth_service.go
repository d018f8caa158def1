package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// refreshSkew treats tokens this close to expiry as already expired.
const refreshSkew = time.Minute

type OAuthService interface {
	BeginAuthorization(ctx context.Context, userID int64, platformID string) (string, *models.AuthorizationSession, error)
	CompleteAuthorization(ctx context.Context, platformID, code, state string) (*models.PlatformCredential, error)
	GetValidCredential(ctx context.Context, userID int64, platformID string) (*models.PlatformCredential, error)
	RefreshExpiring(ctx context.Context, within time.Duration) (int, error)
	ListConnections(ctx context.Context, userID int64) ([]*models.PlatformCredential, error)
	Disconnect(ctx context.Context, userID int64, platformID string) error
}

type oauthService struct {
	cfg      config.Config
	registry *platform.Registry
	sessions repository.SessionRepository
	creds    repository.CredentialRepository
	client   *http.Client
	refresh  singleflight.Group
	now      func() time.Time
}

func NewOAuthService(
	cfg config.Config,
	registry *platform.Registry,
	sessions repository.SessionRepository,
	creds repository.CredentialRepository) OAuthService {
	return &oauthService{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
		creds:    creds,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
}

func (s *oauthService) connectable(platformID string) (platform.Platform, error) {
	p, err := s.registry.Lookup(platformID)
	if err != nil {
		return platform.Platform{}, err
	}
	if !p.SupportsAuthorization() || !s.cfg.Enabled(p.ID) || s.cfg.Clients[p.ID].ClientID == "" {
		return platform.Platform{}, apperrors.ErrUnsupportedPlatform.WithDetails("%s", p.DisplayName)
	}
	return p, nil
}

func (s *oauthService) oauthConfig(p platform.Platform) *oauth2.Config {
	client := s.cfg.Clients[p.ID]

	scopes := p.RequiredScopes
	if p.ScopeSeparator != "" && p.ScopeSeparator != " " {
		scopes = []string{strings.Join(p.RequiredScopes, p.ScopeSeparator)}
	}

	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  s.cfg.RedirectURI(p.ID),
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthorizationEndpoint,
			TokenURL:  p.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// clientParam carries the client identifier under the platform's own
// parameter name when it is not the standard client_id.
func (s *oauthService) clientParam(p platform.Platform) []oauth2.AuthCodeOption {
	if p.ClientIDParam == "" || p.ClientIDParam == "client_id" {
		return nil
	}
	return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam(p.ClientIDParam, s.cfg.Clients[p.ID].ClientID)}
}

func (s *oauthService) BeginAuthorization(ctx context.Context, userID int64, platformID string) (string, *models.AuthorizationSession, error) {
	p, err := s.connectable(platformID)
	if err != nil {
		return "", nil, err
	}

	state, err := utils.GenerateRandomKey(32)
	if err != nil {
		slog.Info(err.Error())
		return "", nil, fmt.Errorf("failed to generate state: %w", err)
	}

	verifier := oauth2.GenerateVerifier()
	session := &models.AuthorizationSession{
		State:         state,
		PlatformID:    p.ID,
		UserID:        userID,
		CodeVerifier:  verifier,
		CodeChallenge: oauth2.S256ChallengeFromVerifier(verifier),
		CreatedAt:     s.now(),
	}

	// Sessions outlive their TTL in the store so a late callback reports
	// expiry instead of an unknown state.
	if err := s.sessions.Save(ctx, session, 2*s.cfg.OAuthSessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to save authorization session: %w", err)
	}

	opts := append(s.clientParam(p), oauth2.S256ChallengeOption(verifier))
	for k, v := range p.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return s.oauthConfig(p).AuthCodeURL(state, opts...), session, nil
}

func (s *oauthService) CompleteAuthorization(ctx context.Context, platformID, code, state string) (*models.PlatformCredential, error) {
	if state == "" {
		return nil, apperrors.ErrSessionNotFound
	}

	session, err := s.sessions.Take(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if s.now().Sub(session.CreatedAt) > s.cfg.OAuthSessionTTL {
		return nil, apperrors.ErrSessionExpired
	}
	if session.PlatformID != platformID {
		return nil, apperrors.ErrStateMismatch.WithDetails("session is for %s", session.PlatformID)
	}
	if code == "" {
		return nil, apperrors.ErrExchangeFailed.WithDetails("missing authorization code")
	}

	p, err := s.connectable(platformID)
	if err != nil {
		return nil, err
	}

	opts := append(s.clientParam(p), oauth2.VerifierOption(session.CodeVerifier))
	token, err := s.oauthConfig(p).Exchange(s.httpContext(ctx), code, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, apperrors.ErrExchangeFailed.Wrap(err)
	}

	cred := &models.PlatformCredential{
		UserID:       session.UserID,
		PlatformID:   p.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	slog.Info("platform connected", "user_id", cred.UserID, "platform", p.ID)
	return cred, nil
}

func (s *oauthService) GetValidCredential(ctx context.Context, userID int64, platformID string) (*models.PlatformCredential, error) {
	cred, err := s.creds.Get(ctx, userID, platformID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, apperrors.ErrNotAuthorized.WithDetails("%s", platformID)
	}
	if !cred.Expired(s.now().Add(refreshSkew)) {
		return cred, nil
	}
	return s.refreshCredential(ctx, userID, platformID, false)
}

// refreshCredential collapses concurrent refreshes of the same credential
// into one token endpoint call. Unless force is set, a credential that is
// still valid when the flight starts is returned as is.
func (s *oauthService) refreshCredential(ctx context.Context, userID int64, platformID string, force bool) (*models.PlatformCredential, error) {
	key := fmt.Sprintf("%d:%s", userID, platformID)
	v, err, _ := s.refresh.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)

		cred, err := s.creds.Get(ctx, userID, platformID)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			return nil, apperrors.ErrNotAuthorized.WithDetails("%s", platformID)
		}
		if !force && !cred.Expired(s.now().Add(refreshSkew)) {
			return cred, nil
		}
		if cred.RefreshToken == "" {
			return nil, apperrors.ErrRefreshFailed.WithDetails("%s issued no refresh token", platformID)
		}

		p, err := s.connectable(platformID)
		if err != nil {
			return nil, apperrors.ErrRefreshFailed.Wrap(err)
		}

		token, err := s.exchangeRefreshToken(ctx, p, cred.RefreshToken)
		if err != nil {
			slog.Info(err.Error())
			return nil, apperrors.ErrRefreshFailed.Wrap(err)
		}

		next := &models.PlatformCredential{
			UserID:       userID,
			PlatformID:   platformID,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresAt:    token.Expiry,
		}
		if next.RefreshToken == "" {
			next.RefreshToken = cred.RefreshToken
		}
		if err := s.creds.Upsert(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to store credential: %w", err)
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	cred := *v.(*models.PlatformCredential)
	return &cred, nil
}

func (s *oauthService) exchangeRefreshToken(ctx context.Context, p platform.Platform, refreshToken string) (*oauth2.Token, error) {
	if p.ClientIDParam != "" && p.ClientIDParam != "client_id" {
		return s.refreshWithClientKey(ctx, p, refreshToken)
	}
	return s.oauthConfig(p).TokenSource(s.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
}

type formTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	Description  string `json:"error_description"`
}

// refreshWithClientKey posts the refresh grant by hand for platforms whose
// token endpoint wants the client identifier under a non-standard name.
func (s *oauthService) refreshWithClientKey(ctx context.Context, p platform.Platform, refreshToken string) (*oauth2.Token, error) {
	client := s.cfg.Clients[p.ID]

	data := url.Values{}
	data.Set(p.ClientIDParam, client.ClientID)
	data.Set("client_secret", client.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s token endpoint returned %d: %s", p.ID, resp.StatusCode, body)
	}

	var tr formTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Error != "" || tr.AccessToken == "" {
		return nil, fmt.Errorf("%s token endpoint rejected refresh: %s %s", p.ID, tr.Error, tr.Description)
	}

	token := &oauth2.Token{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}
	if tr.ExpiresIn > 0 {
		token.Expiry = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

// RefreshExpiring refreshes every stored credential expiring within the
// given window and returns how many were refreshed.
func (s *oauthService) RefreshExpiring(ctx context.Context, within time.Duration) (int, error) {
	creds, err := s.creds.ListExpiring(ctx, s.now().Add(within))
	if err != nil {
		return 0, err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	semaphore := make(chan struct{}, 10)

	for _, cred := range creds {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(cred *models.PlatformCredential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := s.refreshCredential(ctx, cred.UserID, cred.PlatformID, true); err != nil {
				slog.Info("unable to refresh credential", "user_id", cred.UserID, "platform", cred.PlatformID, "error", err)
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(cred)
	}
	wg.Wait()

	return refreshed, nil
}

func (s *oauthService) ListConnections(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	return s.creds.ListByUserID(ctx, userID)
}

func (s *oauthService) Disconnect(ctx context.Context, userID int64, platformID string) error {
	if _, err := s.registry.Lookup(platformID); err != nil {
		return err
	}

	cred, err := s.creds.Get(ctx, userID, platformID)
	if err != nil {
		return err
	}
	if cred == nil {
		return apperrors.ErrNotAuthorized.WithDetails("%s", platformID)
	}

	if err := s.creds.Remove(ctx, userID, platformID); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}

func (s *oauthService) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

// IsReconnectRequired reports whether err means the user must authorize the
// platform again.
func IsReconnectRequired(err error) bool {
	return errors.Is(err, apperrors.ErrNotAuthorized) || errors.Is(err, apperrors.ErrRefreshFailed)
}
