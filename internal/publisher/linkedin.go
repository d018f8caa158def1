package publisher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const LinkedInAPIURL = "https://api.linkedin.com"

type linkedInPublisher struct {
	client
	apiURL string
}

func NewLinkedInPublisher(apiURL string, hc *http.Client) Publisher {
	return &linkedInPublisher{client: newClient(platform.LinkedIn, hc), apiURL: apiURL}
}

func (p *linkedInPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	token := req.Credential.AccessToken

	var user transfer.LinkedInUserInfo
	if _, err := p.getJSON(ctx, p.apiURL+"/v2/userinfo", token, &user); err != nil {
		return nil, err
	}
	if user.Sub == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("linkedin returned no member id")
	}

	payload := map[string]any{
		"author":         "urn:li:person:" + user.Sub,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": req.Content},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	httpReq, err := newJSONRequest(ctx, p.apiURL+"/v2/ugcPosts", token, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var created transfer.GraphObject
	body, header, err := p.do(httpReq, &created)
	if err != nil {
		return nil, err
	}

	id := header.Get("X-Restli-Id")
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("no share id returned")
	}

	return &Result{
		ExternalID: id,
		URL:        fmt.Sprintf("https://www.linkedin.com/feed/update/%s", id),
		Payload:    body,
	}, nil
}
