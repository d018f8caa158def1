package publisher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const FacebookGraphURL = "https://graph.facebook.com/v21.0"

type facebookPublisher struct {
	client
	graphURL string
}

func NewFacebookPublisher(graphURL string, hc *http.Client) Publisher {
	return &facebookPublisher{client: newClient(platform.Facebook, hc), graphURL: graphURL}
}

// Publish posts to the first page the user manages, as a photo when media
// is attached and as a feed post otherwise.
func (p *facebookPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	var pages transfer.GraphPages
	if _, err := p.getJSON(ctx, p.graphURL+"/me/accounts", req.Credential.AccessToken, &pages); err != nil {
		return nil, err
	}
	if len(pages.Data) == 0 {
		return nil, apperrors.ErrPublishFailed.WithDetails("no Facebook page available")
	}
	page := pages.Data[0]

	var (
		endpoint string
		payload  map[string]any
	)
	if len(req.Media) > 0 {
		endpoint = fmt.Sprintf("%s/%s/photos", p.graphURL, page.ID)
		payload = map[string]any{"url": req.Media[0].ByteRef, "caption": req.Content}
	} else {
		endpoint = fmt.Sprintf("%s/%s/feed", p.graphURL, page.ID)
		payload = map[string]any{"message": req.Content}
	}

	var created transfer.GraphObject
	body, _, err := p.postJSON(ctx, endpoint, page.AccessToken, payload, &created)
	if err != nil {
		return nil, err
	}

	id := created.PostID
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("no post id returned from Facebook")
	}

	return &Result{
		ExternalID: id,
		URL:        fmt.Sprintf("https://www.facebook.com/%s", id),
		Payload:    body,
	}, nil
}
