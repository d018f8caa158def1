package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeTitleLimit = 100

type youtubePublisher struct {
	client
	endpoint string
}

// NewYouTubePublisher uploads videos through the YouTube Data API. An empty
// endpoint uses the production API.
func NewYouTubePublisher(endpoint string, hc *http.Client) Publisher {
	return &youtubePublisher{client: newClient(platform.YouTube, hc), endpoint: endpoint}
}

func (p *youtubePublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	var video *models.MediaAsset
	for _, asset := range req.Media {
		if asset.Kind == models.MediaKindVideo {
			video = asset
			break
		}
	}
	if video == nil {
		return nil, apperrors.ErrMediaRequired.WithDetails("YouTube needs a video attachment")
	}

	data, err := p.fetch(ctx, video.ByteRef)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: req.Credential.AccessToken})),
	}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(req.Content),
			Description: req.Content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	resp, err := service.Videos.Insert([]string{"snippet", "status"}, upload).
		Media(bytes.NewReader(data), googleapi.ContentType(video.MimeType)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, youtubeError(err)
	}

	return &Result{
		ExternalID: resp.Id,
		URL:        fmt.Sprintf("https://youtu.be/%s", resp.Id),
	}, nil
}

// videoTitle uses the first line of the description, cut to YouTube's limit.
func videoTitle(content string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return firstRunes(title, youtubeTitleLimit)
}

func youtubeError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classify(platform.YouTube, apiErr.Code, []byte(apiErr.Message))
	}
	return transportError(platform.YouTube, err)
}
