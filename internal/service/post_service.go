package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type PostInput struct {
	Content  string
	Platform string
	Tone     string
	MediaIDs []string
}

type SubmitOptions struct {
	Transform     bool
	ScheduledTime *time.Time
}

// SubmitResult is the outcome of a submission: the post and, when it was
// published immediately, its receipt.
type SubmitResult struct {
	Post    *models.Post
	Receipt *models.PublishedReceipt
}

type PostService interface {
	Submit(ctx context.Context, userID int64, in PostInput, opts SubmitOptions) (*SubmitResult, error)
	SaveDraft(ctx context.Context, userID int64, in PostInput) (*models.Post, error)
	UpdateDraft(ctx context.Context, userID int64, postID string, in PostInput) (*models.Post, error)
	SubmitDraft(ctx context.Context, userID int64, postID string, opts SubmitOptions) (*SubmitResult, error)
	ListDrafts(ctx context.Context, userID int64) ([]*models.Post, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID int64, postID string) (*models.Post, error)
	PublishNow(ctx context.Context, userID int64, postID string) (*models.PublishedReceipt, error)
	Retry(ctx context.Context, userID int64, postID string) (*SubmitResult, error)
	Cancel(ctx context.Context, userID int64, postID string) (*models.Post, error)
	Remove(ctx context.Context, userID int64, postID string) error
}

type postService struct {
	pr          repository.PostRepository
	registry    *platform.Registry
	transformer ContentTransformer
	validator   ConstraintValidator
	media       MediaService
	scheduler   SchedulerService
	publisher   PublishService
	now         func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	registry *platform.Registry,
	transformer ContentTransformer,
	validator ConstraintValidator,
	media MediaService,
	scheduler SchedulerService,
	publisher PublishService) PostService {
	return &postService{
		pr:          pr,
		registry:    registry,
		transformer: transformer,
		validator:   validator,
		media:       media,
		scheduler:   scheduler,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *postService) newPost(userID int64, in PostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.ErrEmptyInput
	}
	if _, err := s.registry.Lookup(in.Platform); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	now := s.now()
	return &models.Post{
		ID:            id,
		UserID:        userID,
		RawContent:    in.Content,
		Tone:          in.Tone,
		PlatformID:    in.Platform,
		MediaAssetIDs: append([]string(nil), in.MediaIDs...),
		Status:        models.PostStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *postService) checkSchedule(opts SubmitOptions) error {
	if opts.ScheduledTime != nil && !opts.ScheduledTime.After(s.now()) {
		return apperrors.ErrTimeInPast
	}
	return nil
}

// Submit runs new content through the pipeline. Nothing is stored unless
// the content passes transformation and validation.
func (s *postService) Submit(ctx context.Context, userID int64, in PostInput, opts SubmitOptions) (*SubmitResult, error) {
	if err := s.checkSchedule(opts); err != nil {
		return nil, err
	}

	post, err := s.newPost(userID, in)
	if err != nil {
		return nil, err
	}

	if err := s.prepare(ctx, post, opts.Transform); err != nil {
		return nil, err
	}

	post.Status = models.PostStatusReady
	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	return s.dispatch(ctx, post, opts)
}

// prepare optionally transforms the content, then validates the final text,
// the media rules and media readiness.
func (s *postService) prepare(ctx context.Context, post *models.Post, transform bool) error {
	if transform {
		out, err := s.transformer.Transform(ctx, post.RawContent, post.PlatformID, post.Tone)
		if err != nil {
			return err
		}
		post.TransformedContent = &out
	}

	if err := s.validator.Validate(post.FinalContent(), post.PlatformID); err != nil {
		return err
	}
	if err := s.validator.ValidateMedia(post.PlatformID, len(post.MediaAssetIDs)); err != nil {
		return err
	}
	assets, err := s.media.EnsureReady(ctx, post.MediaAssetIDs)
	if err != nil {
		return err
	}
	return s.validator.ValidateMediaKinds(post.PlatformID, assets)
}

func (s *postService) dispatch(ctx context.Context, post *models.Post, opts SubmitOptions) (*SubmitResult, error) {
	if opts.ScheduledTime != nil {
		scheduled, err := s.scheduler.Schedule(ctx, post, *opts.ScheduledTime)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Post: scheduled}, nil
	}

	receipt, err := s.publisher.Publish(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	published, err := s.pr.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Post: published, Receipt: receipt}, nil
}

func (s *postService) SaveDraft(ctx context.Context, userID int64, in PostInput) (*models.Post, error) {
	post, err := s.newPost(userID, in)
	if err != nil {
		return nil, err
	}
	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating draft: %w", err)
	}
	return post, nil
}

func (s *postService) UpdateDraft(ctx context.Context, userID int64, postID string, in PostInput) (*models.Post, error) {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusDraft {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperrors.ErrEmptyInput
	}
	if _, err := s.registry.Lookup(in.Platform); err != nil {
		return nil, err
	}

	post.RawContent = in.Content
	post.TransformedContent = nil
	post.Tone = in.Tone
	post.PlatformID = in.Platform
	post.MediaAssetIDs = append([]string(nil), in.MediaIDs...)
	post.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusDraft)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post %s is no longer a draft", post.ID)
	}
	return post, nil
}

// SubmitDraft moves a draft through transformation and validation. A draft
// that fails either step goes back to draft unchanged.
func (s *postService) SubmitDraft(ctx context.Context, userID int64, postID string, opts SubmitOptions) (*SubmitResult, error) {
	if err := s.checkSchedule(opts); err != nil {
		return nil, err
	}

	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	ok, err := s.pr.CompareAndSetStatus(ctx, post.ID, models.PostStatusDraft, models.PostStatusPendingTransform)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}

	if err := s.prepare(ctx, post, opts.Transform); err != nil {
		if _, rerr := s.pr.CompareAndSetStatus(ctx, post.ID, models.PostStatusPendingTransform, models.PostStatusDraft); rerr != nil {
			slog.Error(rerr.Error())
		}
		return nil, err
	}

	post.Status = models.PostStatusReady
	post.UpdatedAt = s.now()
	ok, err = s.pr.CompareAndUpdate(ctx, post, models.PostStatusPendingTransform)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post %s changed state during submission", post.ID)
	}

	return s.dispatch(ctx, post, opts)
}

func (s *postService) ListDrafts(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByStatus(ctx, userID, models.PostStatusDraft)
}

func (s *postService) ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.scheduler.ListScheduled(ctx, userID)
}

func (s *postService) Get(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, apperrors.ErrPostNotFound.WithDetails("%s", postID)
	}
	return post, nil
}

func (s *postService) PublishNow(ctx context.Context, userID int64, postID string) (*models.PublishedReceipt, error) {
	if _, err := s.Get(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.publisher.Publish(ctx, postID)
}

// Retry sends a failed post back through publishing. A post whose
// scheduled time is still ahead is scheduled again instead.
func (s *postService) Retry(ctx context.Context, userID int64, postID string) (*SubmitResult, error) {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if post.Status != models.PostStatusFailed {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}

	post.Status = models.PostStatusReady
	post.LastError = nil
	post.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusFailed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post %s changed state", post.ID)
	}

	var opts SubmitOptions
	if post.ScheduledTime != nil && post.ScheduledTime.After(s.now()) {
		at := *post.ScheduledTime
		opts.ScheduledTime = &at
	}
	return s.dispatch(ctx, post, opts)
}

func (s *postService) Cancel(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	return s.scheduler.Cancel(ctx, userID, postID)
}

func (s *postService) Remove(ctx context.Context, userID int64, postID string) error {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing || post.Status == models.PostStatusPendingTransform {
		return apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}
	return s.pr.Remove(ctx, post.ID)
}
