package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const InstagramGraphURL = "https://graph.instagram.com/v21.0"

type instagramPublisher struct {
	client
	graphURL string
}

func NewInstagramPublisher(graphURL string, hc *http.Client) Publisher {
	return &instagramPublisher{client: newClient(platform.Instagram, hc), graphURL: graphURL}
}

// Publish creates a media container (a carousel when there is more than
// one asset) and then publishes it.
func (p *instagramPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	token := req.Credential.AccessToken
	if len(req.Media) == 0 {
		return nil, apperrors.ErrMediaRequired.WithDetails("Instagram")
	}

	accountID, err := p.accountID(ctx, token)
	if err != nil {
		return nil, err
	}

	var containerID string
	if len(req.Media) == 1 {
		containerID, err = p.createContainer(ctx, accountID, mediaContainer(req.Media[0], req.Content, false, token))
	} else {
		containerID, err = p.createCarousel(ctx, accountID, req, token)
	}
	if err != nil {
		return nil, err
	}

	var published transfer.GraphObject
	body, _, err := p.postJSON(ctx, fmt.Sprintf("%s/%s/media_publish", p.graphURL, accountID), "",
		transfer.InstagramPublishRequest{CreationID: containerID, AccessToken: token}, &published)
	if err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("no media id returned from Instagram")
	}

	return &Result{ExternalID: published.ID, Payload: body}, nil
}

func (p *instagramPublisher) accountID(ctx context.Context, token string) (string, error) {
	u := fmt.Sprintf("%s/me?fields=user_id,username&access_token=%s", p.graphURL, url.QueryEscape(token))
	var user transfer.InstagramUser
	if _, err := p.getJSON(ctx, u, "", &user); err != nil {
		return "", err
	}
	if user.UserID == "" {
		return "", apperrors.ErrPublishFailed.WithDetails("instagram returned no account id")
	}
	return user.UserID, nil
}

func mediaContainer(asset *models.MediaAsset, caption string, carouselItem bool, token string) transfer.InstagramContainerRequest {
	c := transfer.InstagramContainerRequest{
		IsCarouselItem: carouselItem,
		AccessToken:    token,
	}
	if !carouselItem {
		c.Caption = caption
	}
	if asset.Kind == models.MediaKindVideo {
		c.VideoURL = asset.ByteRef
		c.MediaType = "REELS"
		if carouselItem {
			c.MediaType = "VIDEO"
		}
	} else {
		c.ImageURL = asset.ByteRef
	}
	return c
}

func (p *instagramPublisher) createCarousel(ctx context.Context, accountID string, req Request, token string) (string, error) {
	children := make([]string, 0, len(req.Media))
	for _, asset := range req.Media {
		id, err := p.createContainer(ctx, accountID, mediaContainer(asset, "", true, token))
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return p.createContainer(ctx, accountID, transfer.InstagramContainerRequest{
		MediaType:   "CAROUSEL",
		Caption:     req.Content,
		Children:    children,
		AccessToken: token,
	})
}

func (p *instagramPublisher) createContainer(ctx context.Context, accountID string, c transfer.InstagramContainerRequest) (string, error) {
	var created transfer.GraphObject
	if _, _, err := p.postJSON(ctx, fmt.Sprintf("%s/%s/media", p.graphURL, accountID), "", c, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", apperrors.ErrPublishFailed.WithDetails("no container id returned from Instagram")
	}
	return created.ID, nil
}
