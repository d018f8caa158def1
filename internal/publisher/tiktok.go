package publisher

import (
	"context"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const TikTokAPIURL = "https://open.tiktokapis.com"

const tiktokTitleLimit = 90

type tiktokPublisher struct {
	client
	apiURL string
}

func NewTikTokPublisher(apiURL string, hc *http.Client) Publisher {
	return &tiktokPublisher{client: newClient(platform.TikTok, hc), apiURL: apiURL}
}

// Publish asks TikTok to pull the stored media by URL. A video post uses
// the first asset; image posts become a photo carousel.
func (p *tiktokPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if len(req.Media) == 0 {
		return nil, apperrors.ErrMediaRequired.WithDetails("TikTok")
	}

	var (
		endpoint string
		payload  any
	)
	if req.Media[0].Kind == models.MediaKindVideo {
		endpoint = p.apiURL + "/v2/post/publish/video/init/"
		payload = transfer.VideoPublishRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 req.Content,
				PrivacyLevel:          "PUBLIC_TO_EVERYONE",
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: req.Media[0].ByteRef,
			},
		}
	} else {
		photos := make([]string, 0, len(req.Media))
		for _, asset := range req.Media {
			photos = append(photos, asset.ByteRef)
		}
		endpoint = p.apiURL + "/v2/post/publish/content/init/"
		payload = transfer.PhotoPublishRequest{
			PostInfo: transfer.PhotoPostInfo{
				Title:        firstRunes(req.Content, tiktokTitleLimit),
				Description:  req.Content,
				PrivacyLevel: "PUBLIC_TO_EVERYONE",
				AutoAddMusic: true,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:      "PULL_FROM_URL",
				PhotoImages: photos,
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	var resp transfer.TikTokPublishResponse
	body, _, err := p.postJSON(ctx, endpoint, req.Credential.AccessToken, payload, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return nil, apperrors.ErrPublishFailed.WithDetails("tiktok: %s: %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Data.PublishID == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("no publish id returned from TikTok")
	}

	return &Result{ExternalID: resp.Data.PublishID, Payload: body}, nil
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
