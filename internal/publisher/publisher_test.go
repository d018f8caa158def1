package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Auth   string
	Header http.Header
	Body   []byte
}

// platformServer answers by path from a route table and records requests.
type platformServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
}

type route struct {
	status int
	body   string
	header map[string]string
}

func newPlatformServer(t *testing.T, routes map[string]route) *platformServer {
	ps := &platformServer{}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ps.mu.Lock()
		ps.requests = append(ps.requests, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Header: r.Header.Clone(),
			Body:   body,
		})
		ps.mu.Unlock()

		rt, ok := routes[r.URL.Path]
		if !ok {
			assert.Failf(t, "unexpected request", "%s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for k, v := range rt.header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		if rt.status == 0 {
			rt.status = http.StatusOK
		}
		w.WriteHeader(rt.status)
		io.WriteString(w, rt.body)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *platformServer) request(t *testing.T, path string) recorded {
	t.Helper()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, r := range ps.requests {
		if r.Path == path {
			return r
		}
	}
	require.Failf(t, "request not seen", "%s", path)
	return recorded{}
}

func (ps *platformServer) count(path string) int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	n := 0
	for _, r := range ps.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func jsonBody(t *testing.T, r recorded) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.Body, &m))
	return m
}

func request(content string, media ...*models.MediaAsset) Request {
	return Request{
		PostID:     "post-1",
		Content:    content,
		Media:      media,
		Credential: &models.PlatformCredential{AccessToken: "tok"},
	}
}

func image(url string) *models.MediaAsset {
	return &models.MediaAsset{ID: "a-" + url, Kind: models.MediaKindImage, MimeType: "image/png", ByteRef: url}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusTooManyRequests, "slow down", apperrors.ErrTransient},
		{http.StatusBadGateway, "", apperrors.ErrTransient},
		{http.StatusUnauthorized, "expired", apperrors.ErrNotAuthorized},
		{http.StatusBadRequest, "duplicate", apperrors.ErrPublishFailed},
		{http.StatusBadRequest, `{"error":{"code":190,"message":"token expired"}}`, apperrors.ErrNotAuthorized},
		{http.StatusBadRequest, `{"error":{"code":2,"is_transient":true}}`, apperrors.ErrTransient},
	}
	for _, tt := range tests {
		err := classify("twitter", tt.status, []byte(tt.body))
		assert.ErrorIs(t, err, tt.want, "status %d body %q", tt.status, tt.body)
	}
}

func TestTwitter_TextOnly(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/2/tweets": {status: http.StatusCreated, body: `{"data":{"id":"1789","text":"hi"}}`},
	})
	p := NewTwitterPublisher(srv.URL, srv.URL, srv.Client())

	res, err := p.Publish(context.Background(), request("hello world"))
	require.NoError(t, err)

	assert.Equal(t, "1789", res.ExternalID)
	assert.Equal(t, "https://x.com/i/web/status/1789", res.URL)

	r := srv.request(t, "/2/tweets")
	assert.Equal(t, "Bearer tok", r.Auth)
	body := jsonBody(t, r)
	assert.Equal(t, "hello world", body["text"])
	assert.NotContains(t, body, "media")
}

func TestTwitter_UploadsMediaFirst(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/blobs/a.png":           {body: "PNGDATA"},
		"/1.1/media/upload.json": {body: `{"media_id_string":"m-1"}`},
		"/2/tweets":              {status: http.StatusCreated, body: `{"data":{"id":"42"}}`},
	})
	p := NewTwitterPublisher(srv.URL, srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("with pic", image(srv.URL+"/blobs/a.png")))
	require.NoError(t, err)

	upload := srv.request(t, "/1.1/media/upload.json")
	assert.Contains(t, upload.Header.Get("Content-Type"), "multipart/form-data")
	assert.Contains(t, string(upload.Body), "PNGDATA")

	body := jsonBody(t, srv.request(t, "/2/tweets"))
	assert.Equal(t, map[string]any{"media_ids": []any{"m-1"}}, body["media"])
}

func TestTwitter_RateLimitedIsTransient(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/2/tweets": {status: http.StatusTooManyRequests, body: `{"title":"Too Many Requests"}`},
	})
	p := NewTwitterPublisher(srv.URL, srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("hello"))
	assert.ErrorIs(t, err, apperrors.ErrTransient)
}

func TestLinkedIn_PublishesAsMember(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/v2/userinfo": {body: `{"sub":"abc123","name":"Ada"}`},
		"/v2/ugcPosts": {status: http.StatusCreated, body: `{}`, header: map[string]string{"X-Restli-Id": "urn:li:share:9"}},
	})
	p := NewLinkedInPublisher(srv.URL, srv.Client())

	res, err := p.Publish(context.Background(), request("quarterly update"))
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:9", res.ExternalID)

	r := srv.request(t, "/v2/ugcPosts")
	assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
	body := jsonBody(t, r)
	assert.Equal(t, "urn:li:person:abc123", body["author"])
	assert.Contains(t, string(r.Body), "quarterly update")
}

func TestLinkedIn_ExpiredToken(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/v2/userinfo": {status: http.StatusUnauthorized, body: `{"message":"expired"}`},
	})
	p := NewLinkedInPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("hi"))
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
}

func TestInstagram_SingleImage(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/me":                 {body: `{"user_id":"ig-1","username":"ada"}`},
		"/ig-1/media":         {body: `{"id":"container-1"}`},
		"/ig-1/media_publish": {body: `{"id":"media-1"}`},
	})
	p := NewInstagramPublisher(srv.URL, srv.Client())

	res, err := p.Publish(context.Background(), request("caption", image("https://cdn.example.com/a.png")))
	require.NoError(t, err)
	assert.Equal(t, "media-1", res.ExternalID)

	container := jsonBody(t, srv.request(t, "/ig-1/media"))
	assert.Equal(t, "https://cdn.example.com/a.png", container["image_url"])
	assert.Equal(t, "caption", container["caption"])

	publish := jsonBody(t, srv.request(t, "/ig-1/media_publish"))
	assert.Equal(t, "container-1", publish["creation_id"])
}

func TestInstagram_Carousel(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/me":                 {body: `{"user_id":"ig-1"}`},
		"/ig-1/media":         {body: `{"id":"c"}`},
		"/ig-1/media_publish": {body: `{"id":"media-2"}`},
	})
	p := NewInstagramPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("two pics",
		image("https://cdn.example.com/1.png"), image("https://cdn.example.com/2.png")))
	require.NoError(t, err)

	assert.Equal(t, 3, srv.count("/ig-1/media"))
	assert.Equal(t, 1, srv.count("/ig-1/media_publish"))
}

func TestInstagram_RequiresMedia(t *testing.T) {
	p := NewInstagramPublisher("http://unused.invalid", nil)

	_, err := p.Publish(context.Background(), request("no pics"))
	assert.ErrorIs(t, err, apperrors.ErrMediaRequired)
}

func TestFacebook_FeedPostUsesPageToken(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/me/accounts": {body: `{"data":[{"id":"page-1","name":"Shop","access_token":"page-tok"}]}`},
		"/page-1/feed": {body: `{"id":"page-1_77"}`},
	})
	p := NewFacebookPublisher(srv.URL, srv.Client())

	res, err := p.Publish(context.Background(), request("open today"))
	require.NoError(t, err)
	assert.Equal(t, "page-1_77", res.ExternalID)

	assert.Equal(t, "Bearer tok", srv.request(t, "/me/accounts").Auth)
	feed := srv.request(t, "/page-1/feed")
	assert.Equal(t, "Bearer page-tok", feed.Auth)
	assert.Equal(t, "open today", jsonBody(t, feed)["message"])
}

func TestFacebook_NoPages(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/me/accounts": {body: `{"data":[]}`},
	})
	p := NewFacebookPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("hi"))
	assert.ErrorIs(t, err, apperrors.ErrPublishFailed)
}

func TestTikTok_PhotoPost(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/v2/post/publish/content/init/": {body: `{"data":{"publish_id":"pub-1"},"error":{"code":"ok"}}`},
	})
	p := NewTikTokPublisher(srv.URL, srv.Client())

	res, err := p.Publish(context.Background(), request("dance", image("https://cdn.example.com/1.png")))
	require.NoError(t, err)
	assert.Equal(t, "pub-1", res.ExternalID)

	body := jsonBody(t, srv.request(t, "/v2/post/publish/content/init/"))
	assert.Equal(t, "PHOTO", body["media_type"])
	assert.Equal(t, "DIRECT_POST", body["post_mode"])
}

func TestTikTok_VideoPost(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/v2/post/publish/video/init/": {body: `{"data":{"publish_id":"pub-2"},"error":{"code":"ok"}}`},
	})
	p := NewTikTokPublisher(srv.URL, srv.Client())

	video := &models.MediaAsset{Kind: models.MediaKindVideo, MimeType: "video/mp4", ByteRef: "https://cdn.example.com/v.mp4"}
	_, err := p.Publish(context.Background(), request("watch", video))
	require.NoError(t, err)

	body := jsonBody(t, srv.request(t, "/v2/post/publish/video/init/"))
	source := body["source_info"].(map[string]any)
	assert.Equal(t, "PULL_FROM_URL", source["source"])
	assert.Equal(t, "https://cdn.example.com/v.mp4", source["video_url"])
}

func TestTikTok_ErrorEnvelope(t *testing.T) {
	srv := newPlatformServer(t, map[string]route{
		"/v2/post/publish/content/init/": {body: `{"data":{},"error":{"code":"spam_risk_too_many_posts","message":"slow down"}}`},
	})
	p := NewTikTokPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), request("dance", image("https://cdn.example.com/1.png")))
	assert.ErrorIs(t, err, apperrors.ErrPublishFailed)
	assert.Contains(t, err.Error(), "spam_risk_too_many_posts")
}

func TestYouTube_RequiresVideo(t *testing.T) {
	p := NewYouTubePublisher("http://unused.invalid/", nil)

	_, err := p.Publish(context.Background(), request("no video", image("https://cdn.example.com/1.png")))
	assert.ErrorIs(t, err, apperrors.ErrMediaRequired)
}

func TestVideoTitle(t *testing.T) {
	assert.Equal(t, "First line", videoTitle("  First line\nmore detail"))
	assert.Len(t, []rune(videoTitle(string(make([]byte, 300)))), youtubeTitleLimit)
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil)
	for _, id := range []string{"twitter", "linkedin", "instagram", "facebook", "tiktok", "youtube"} {
		_, ok := r.Get(id)
		assert.True(t, ok, id)
	}
	_, ok := r.Get("snapchat")
	assert.False(t, ok)
}
