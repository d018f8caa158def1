package publisher

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	TwitterAPIURL    = "https://api.twitter.com"
	TwitterUploadURL = "https://upload.twitter.com"
)

type twitterPublisher struct {
	client
	apiURL    string
	uploadURL string
}

func NewTwitterPublisher(apiURL, uploadURL string, hc *http.Client) Publisher {
	return &twitterPublisher{
		client:    newClient(platform.Twitter, hc),
		apiURL:    apiURL,
		uploadURL: uploadURL,
	}
}

func (p *twitterPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	token := req.Credential.AccessToken

	var mediaIDs []string
	for _, asset := range req.Media {
		id, err := p.uploadMedia(ctx, token, asset.ByteRef, asset.MimeType)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, id)
	}

	tweet := transfer.TweetRequest{Text: req.Content}
	if len(mediaIDs) > 0 {
		tweet.Media = &transfer.TweetMedia{MediaIDs: mediaIDs}
	}

	var resp transfer.TweetResponse
	body, _, err := p.postJSON(ctx, p.apiURL+"/2/tweets", token, tweet, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, apperrors.ErrPublishFailed.WithDetails("no tweet id returned")
	}

	return &Result{
		ExternalID: resp.Data.ID,
		URL:        fmt.Sprintf("https://x.com/i/web/status/%s", resp.Data.ID),
		Payload:    body,
	}, nil
}

// uploadMedia copies a stored asset into Twitter's media store.
func (p *twitterPublisher) uploadMedia(ctx context.Context, token, url, mimeType string) (string, error) {
	data, err := p.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("media", "media")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("media_type", mimeType); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+token)

	var resp transfer.MediaUploadResponse
	if _, _, err := p.do(httpReq, &resp); err != nil {
		return "", err
	}
	if resp.MediaIDString == "" {
		return "", apperrors.ErrPublishFailed.WithDetails("no media id returned")
	}
	return resp.MediaIDString, nil
}
