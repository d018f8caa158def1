package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/publisher"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const DefaultMaxAttempts = 3

type PublishService interface {
	// Publish claims a ready or scheduled post and publishes it.
	Publish(ctx context.Context, postID string) (*models.PublishedReceipt, error)
	// PublishClaimed publishes a post the scheduler already moved to
	// publishing.
	PublishClaimed(ctx context.Context, postID string) (*models.PublishedReceipt, error)
}

type publishService struct {
	pr          repository.PostRepository
	media       MediaService
	validator   ConstraintValidator
	oauth       OAuthService
	publishers  *publisher.Registry
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

func NewPublishService(
	pr repository.PostRepository,
	media MediaService,
	validator ConstraintValidator,
	oauth OAuthService,
	publishers *publisher.Registry,
	maxAttempts int) PublishService {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &publishService{
		pr:          pr,
		media:       media,
		validator:   validator,
		oauth:       oauth,
		publishers:  publishers,
		maxAttempts: maxAttempts,
		backoff:     linearBackoff,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

func (s *publishService) Publish(ctx context.Context, postID string) (*models.PublishedReceipt, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublished {
		return post.Receipt, nil
	}
	if post.Status != models.PostStatusReady && post.Status != models.PostStatusScheduled {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}

	ok, err := s.pr.CompareAndSetStatus(ctx, post.ID, post.Status, models.PostStatusPublishing)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved it; a finished publish is still a success.
		current, err := s.load(ctx, postID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.PostStatusPublished {
			return current.Receipt, nil
		}
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", current.Status)
	}

	post.Status = models.PostStatusPublishing
	return s.run(ctx, post)
}

func (s *publishService) PublishClaimed(ctx context.Context, postID string) (*models.PublishedReceipt, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	switch post.Status {
	case models.PostStatusPublished:
		return post.Receipt, nil
	case models.PostStatusPublishing:
		return s.run(ctx, post)
	default:
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}
}

func (s *publishService) load(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperrors.ErrPostNotFound.WithDetails("%s", postID)
	}
	return post, nil
}

// run publishes a post this caller has claimed. It is not cancelled by the
// caller once started.
func (s *publishService) run(ctx context.Context, post *models.Post) (*models.PublishedReceipt, error) {
	ctx = context.WithoutCancel(ctx)

	req, pub, err := s.prepare(ctx, post)
	if err != nil {
		return nil, s.fail(ctx, post, err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		post.AttemptCount++
		post.UpdatedAt = s.now()
		ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusPublishing)
		if err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if !ok {
			return nil, apperrors.ErrInvalidState.WithDetails("post %s is no longer publishing", post.ID)
		}

		result, err := pub.Publish(ctx, req)
		if err == nil {
			return s.succeed(ctx, post, result)
		}

		lastErr = err
		slog.Info("publish attempt failed", "post_id", post.ID, "platform", post.PlatformID, "attempt", attempt, "error", err)
		if !apperrors.IsTransient(err) || attempt == s.maxAttempts {
			break
		}
		if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	if apperrors.IsKind(lastErr, apperrors.KindAuthorization) {
		return nil, s.fail(ctx, post, lastErr)
	}
	return nil, s.fail(ctx, post, apperrors.ErrPublishFailed.Wrap(lastErr))
}

// prepare checks the preconditions that must hold once a post is claimed.
func (s *publishService) prepare(ctx context.Context, post *models.Post) (publisher.Request, publisher.Publisher, error) {
	pub, ok := s.publishers.Get(post.PlatformID)
	if !ok {
		return publisher.Request{}, nil, apperrors.ErrUnsupportedPlatform.WithDetails("no publisher for %s", post.PlatformID)
	}

	content := post.FinalContent()
	if err := s.validator.Validate(content, post.PlatformID); err != nil {
		return publisher.Request{}, nil, err
	}
	if err := s.validator.ValidateMedia(post.PlatformID, len(post.MediaAssetIDs)); err != nil {
		return publisher.Request{}, nil, err
	}

	media, err := s.media.EnsureReady(ctx, post.MediaAssetIDs)
	if err != nil {
		return publisher.Request{}, nil, err
	}
	if err := s.validator.ValidateMediaKinds(post.PlatformID, media); err != nil {
		return publisher.Request{}, nil, err
	}

	cred, err := s.oauth.GetValidCredential(ctx, post.UserID, post.PlatformID)
	if err != nil {
		return publisher.Request{}, nil, err
	}

	return publisher.Request{
		PostID:     post.ID,
		Content:    content,
		Media:      media,
		Credential: cred,
	}, pub, nil
}

func (s *publishService) succeed(ctx context.Context, post *models.Post, result *publisher.Result) (*models.PublishedReceipt, error) {
	receipt := &models.PublishedReceipt{
		PostID:      post.ID,
		PlatformID:  post.PlatformID,
		ExternalID:  result.ExternalID,
		URL:         result.URL,
		PublishedAt: s.now(),
		Payload:     result.Payload,
	}

	post.Status = models.PostStatusPublished
	post.LastError = nil
	post.Receipt = receipt
	post.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusPublishing)
	if err != nil {
		slog.Error("post published but not recorded", "post_id", post.ID, "external_id", result.ExternalID, "error", err)
		return nil, err
	}
	if !ok {
		slog.Error("post published but no longer publishing", "post_id", post.ID, "external_id", result.ExternalID)
		return nil, apperrors.ErrInvalidState.WithDetails("post %s changed state while publishing", post.ID)
	}

	slog.Info("post published", "post_id", post.ID, "platform", post.PlatformID, "external_id", result.ExternalID, "attempts", post.AttemptCount)
	return receipt, nil
}

func (s *publishService) fail(ctx context.Context, post *models.Post, cause error) error {
	msg := cause.Error()
	post.Status = models.PostStatusFailed
	post.LastError = &msg
	post.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusPublishing)
	if err != nil {
		slog.Error(err.Error())
		return errors.Join(cause, err)
	}
	if !ok {
		slog.Warn("failure not recorded, post is no longer publishing", "post_id", post.ID)
	}
	return cause
}
