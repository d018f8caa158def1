package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// Request is everything an adapter needs to publish one post.
type Request struct {
	PostID     string
	Content    string
	Media      []*models.MediaAsset
	Credential *models.PlatformCredential
}

// Result identifies the created object on the platform.
type Result struct {
	ExternalID string
	URL        string
	Payload    []byte
}

// Publisher delivers content to one platform. Errors that may succeed on
// retry match apperrors.ErrTransient; expired or revoked tokens match
// apperrors.ErrNotAuthorized.
type Publisher interface {
	Publish(ctx context.Context, req Request) (*Result, error)
}

// Registry maps platform IDs to their adapters.
type Registry struct {
	byID map[string]Publisher
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Publisher)}
}

func (r *Registry) Register(platformID string, p Publisher) {
	r.byID[platformID] = p
}

func (r *Registry) Get(platformID string) (Publisher, bool) {
	p, ok := r.byID[platformID]
	return p, ok
}

// graphInvalidToken is the Graph API code for expired or revoked tokens.
const graphInvalidToken = 190

// classify turns a failed platform response into an application error.
func classify(platformID string, status int, body []byte) error {
	msg := fmt.Sprintf("%s returned %d: %s", platformID, status, truncate(body, 512))

	var graphErr transfer.GraphError
	if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Code != 0 {
		switch {
		case graphErr.Error.IsTransient:
			return apperrors.ErrTransient.WithDetails("%s", msg)
		case graphErr.Error.Code == graphInvalidToken:
			return apperrors.ErrNotAuthorized.WithDetails("%s", msg)
		}
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.ErrTransient.WithDetails("%s", msg)
	case status == http.StatusUnauthorized:
		return apperrors.ErrNotAuthorized.WithDetails("%s", msg)
	default:
		return apperrors.ErrPublishFailed.WithDetails("%s", msg)
	}
}

// transportError marks failed requests as transient unless the caller gave up.
func transportError(platformID string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info(err.Error())
	return apperrors.ErrTransient.WithDetails("%s request failed", platformID).Wrap(err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
