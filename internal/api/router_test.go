package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/generator"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/publisher"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubText struct {
	out string
	err error
}

func (s stubText) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

type stubImages struct{}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func (stubImages) GenerateImage(ctx context.Context, req generator.ImageRequest) ([]byte, error) {
	return pngBytes, nil
}

type stubBlobs struct{}

func (stubBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "https://media.example.com/" + key, nil
}

type stubPublisher struct {
	err error
}

func (p stubPublisher) Publish(ctx context.Context, req publisher.Request) (*publisher.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &publisher.Result{ExternalID: "tw-1", Payload: []byte(`{"data":{"id":"tw-1"}}`)}, nil
}

type testServer struct {
	app   *fiber.App
	creds repository.CredentialRepository
	token string
}

func newTestServer(t *testing.T, text stubText, pub stubPublisher) *testServer {
	t.Helper()
	cfg := config.Config{
		Clients: map[string]config.PlatformClient{
			platform.Twitter: {ClientID: "tw-client"},
		},
		EnabledPlatforms: []string{platform.Twitter},
		SecretKey:        testSecret,
		CookieName:       "crosspost_session",
		PublicURL:        "https://api.example.com",
		FrontendURL:      "https://app.example.com",
		OAuthSessionTTL:  10 * time.Minute,
	}

	registry := platform.NewRegistry()
	posts := repository.NewMemoryPostRepository()
	creds := repository.NewMemoryCredentialRepository()

	validator := service.NewConstraintValidator(registry)
	transformer := service.NewContentTransformer(registry, text)
	media := service.NewMediaService(repository.NewMemoryMediaAssetRepository(), stubBlobs{}, stubImages{}, 0)
	oauth := service.NewOAuthService(cfg, registry, repository.NewMemorySessionRepository(), creds)
	publishers := publisher.NewRegistry()
	publishers.Register(platform.Twitter, pub)
	publish := service.NewPublishService(posts, media, validator, oauth, publishers, 1)
	scheduler := service.NewSchedulerService(posts, validator)
	postService := service.NewPostService(posts, registry, transformer, validator, media, scheduler, publish)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	Register(app, middleware.NewAuthMiddleware(cfg), Handlers{
		Posts:     handlers.NewPostHandler(postService, transformer),
		Platforms: handlers.NewPlatformHandler(oauth, registry, cfg),
		Social:    handlers.NewSocialHandler(postService, registry),
		Media:     handlers.NewMediaHandler(media),
	})

	token, err := utils.GenerateToken(testSecret, "7", time.Hour)
	require.NoError(t, err)
	return &testServer{app: app, creds: creds, token: token}
}

func (s *testServer) connect(t *testing.T) {
	require.NoError(t, s.creds.Upsert(context.Background(), &models.PlatformCredential{
		UserID: 7, PlatformID: platform.Twitter, AccessToken: "tok",
	}))
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/content/scheduled", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTransform(t *testing.T) {
	s := newTestServer(t, stubText{out: "Fresh take #go"}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/transform", map[string]string{"content": "hi", "platform": "twitter"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Fresh take #go", body["transformedContent"])
}

func TestTransform_GenerationFailure(t *testing.T) {
	s := newTestServer(t, stubText{err: errors.New("quota exceeded")}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/transform", map[string]string{"content": "hi", "platform": "twitter"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["lastError"], "quota exceeded")
}

func TestTransform_MissingPlatform(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/transform", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["code"])
}

func TestSchedule_TooLong(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/schedule", map[string]any{
		"content": strings.Repeat("a", 300), "platform": "twitter",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.EqualValues(t, 280, body["maxAllowed"])
	assert.EqualValues(t, 300, body["actual"])
}

func TestSchedule_PastTime(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/schedule", map[string]any{
		"content": "hi", "platform": "twitter", "scheduledTime": time.Now().Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "time_in_past", body["code"])
}

func TestSchedule_FutureThenList(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/schedule", map[string]any{
		"content": "later", "platform": "twitter", "scheduledTime": time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post scheduled successfully", body["message"])

	req := httptest.NewRequest(http.MethodGet, "/content/scheduled", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	listResp, err := s.app.Test(req)
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "scheduled", list[0]["status"])
}

func TestSchedule_NotConnectedAsksToReconnect(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, body := s.do(t, http.MethodPost, "/content/schedule", map[string]any{"content": "now", "platform": "twitter"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "twitter", body["reconnect"])
}

func TestSchedule_PublishesImmediately(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})
	s.connect(t)

	resp, body := s.do(t, http.MethodPost, "/content/schedule", map[string]any{"content": "now", "platform": "twitter"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post published successfully", body["message"])
}

func TestSocialPost(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})
	s.connect(t)

	resp, body := s.do(t, http.MethodPost, "/social/twitter/post", map[string]any{"content": "direct"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"id": "tw-1"}, body["data"])

	resp, body = s.do(t, http.MethodPost, "/social/myspace/post", map[string]any{"content": "direct"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["message"])
}

func TestSocialPost_Failure(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{err: fmt.Errorf("boom")})
	s.connect(t)

	resp, body := s.do(t, http.MethodPost, "/social/twitter/post", map[string]any{"content": "direct"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["message"], "boom")
}

func TestAuthorizeAndCallback(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	resp, _ := s.do(t, http.MethodGet, "/auth/twitter/authorize", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "https://twitter.com/i/oauth2/authorize?"))

	resp, _ = s.do(t, http.MethodGet, "/auth/snapchat/authorize", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/auth/twitter/callback?code=abc&state=unknown", nil)
	cb, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, cb.StatusCode)
	assert.Equal(t, "https://app.example.com/?connection=failed", cb.Header.Get("Location"))
}

func TestConnectionsAndPlatforms(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})
	s.connect(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/connections", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	var conns []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conns))
	require.Len(t, conns, 1)
	assert.Equal(t, true, conns[0]["connected"])

	del, _ := s.do(t, http.MethodDelete, "/auth/twitter", nil)
	assert.Equal(t, http.StatusNoContent, del.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/platforms", nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	var platforms []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&platforms))
	assert.Len(t, platforms, len(platform.Builtin()))
}

func TestDraftLifecycle(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})
	s.connect(t)

	resp, body := s.do(t, http.MethodPost, "/content/drafts", map[string]any{"content": "draft", "platform": "twitter"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, _ = s.do(t, http.MethodPut, "/content/drafts/"+id, map[string]any{"content": "edited", "platform": "twitter"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/content/drafts/"+id+"/submit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["receipt"])

	resp, body = s.do(t, http.MethodGet, "/content/posts/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "published", body["status"])

	resp, _ = s.do(t, http.MethodGet, "/content/posts/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMediaUpload(t *testing.T) {
	s := newTestServer(t, stubText{}, stubPublisher{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "pixel.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/media/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var asset map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&asset))
	assert.Equal(t, "ready", asset["processingState"])
	assert.Equal(t, "image/png", asset["mimeType"])

	got, body := s.do(t, http.MethodGet, "/media/"+asset["id"].(string), nil)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, asset["id"], body["id"])
}
