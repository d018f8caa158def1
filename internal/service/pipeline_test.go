package service

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/publisher"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// pipeline wires the services over in-memory stores with a fixed clock.
type pipeline struct {
	posts     repository.PostRepository
	assets    repository.MediaAssetRepository
	creds     repository.CredentialRepository
	text      *mockTextGenerator
	images    *scriptedImageGenerator
	pub       *fakePublisher
	media     *mediaService
	scheduler *schedulerService
	publisher *publishService
	svc       *postService
	sleeps    []time.Duration
	now       time.Time
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		posts:  repository.NewMemoryPostRepository(),
		assets: repository.NewMemoryMediaAssetRepository(),
		creds:  repository.NewMemoryCredentialRepository(),
		text:   new(mockTextGenerator),
		images: &scriptedImageGenerator{},
		pub:    &fakePublisher{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return p.now }

	registry := platform.NewRegistry()
	validator := NewConstraintValidator(registry)

	p.media = NewMediaService(p.assets, newFakeBlobStore(), p.images, DefaultWarmupBackoff).(*mediaService)
	p.media.sleep = noSleep(&p.sleeps)

	oauth := NewOAuthService(testConfig(), registry, repository.NewMemorySessionRepository(), p.creds).(*oauthService)
	oauth.now = clock

	publishers := publisher.NewRegistry()
	for _, id := range []string{platform.Twitter, platform.LinkedIn, platform.Instagram} {
		publishers.Register(id, p.pub)
	}

	p.scheduler = NewSchedulerService(p.posts, validator).(*schedulerService)
	p.scheduler.now = clock

	p.publisher = NewPublishService(p.posts, p.media, validator, oauth, publishers, DefaultMaxAttempts).(*publishService)
	p.publisher.now = clock
	p.publisher.sleep = noSleep(&p.sleeps)

	p.svc = NewPostService(p.posts, registry, NewContentTransformer(registry, p.text), validator,
		p.media, p.scheduler, p.publisher).(*postService)
	p.svc.now = clock

	p.connect(t, 1, platform.Twitter)
	p.connect(t, 1, platform.LinkedIn)
	return p
}

func (p *pipeline) connect(t *testing.T, userID int64, platformID string) {
	t.Helper()
	require.NoError(t, p.creds.Upsert(context.Background(), &models.PlatformCredential{
		UserID:       userID,
		PlatformID:   platformID,
		AccessToken:  "token-" + platformID,
		RefreshToken: "refresh-" + platformID,
	}))
}

// readyPost stores a post that already passed preparation.
func (p *pipeline) readyPost(t *testing.T, id, platformID, content string) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:         id,
		UserID:     1,
		RawContent: content,
		PlatformID: platformID,
		Status:     models.PostStatusReady,
		CreatedAt:  p.now,
		UpdatedAt:  p.now,
	}
	require.NoError(t, p.posts.Create(context.Background(), post))
	return post
}

func (p *pipeline) expectTransform(out string) {
	p.text.On("GenerateText", mock.Anything, mock.Anything).Return(out, nil)
}

func (p *pipeline) load(t *testing.T, id string) *models.Post {
	t.Helper()
	post, err := p.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, post)
	return post
}

// save writes back a post that is still ready in the store.
func (p *pipeline) save(t *testing.T, post *models.Post) {
	t.Helper()
	ok, err := p.posts.CompareAndUpdate(context.Background(), post, models.PostStatusReady)
	require.NoError(t, err)
	require.True(t, ok)
}

// interleavedPosts runs afterRead once, right after the next GetByID
// returns, to let a competing caller change the post in between.
type interleavedPosts struct {
	repository.PostRepository
	afterRead func()
}

func (r *interleavedPosts) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.PostRepository.GetByID(ctx, id)
	if f := r.afterRead; f != nil {
		r.afterRead = nil
		f()
	}
	return post, err
}
