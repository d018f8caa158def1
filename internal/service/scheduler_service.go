package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

type SchedulerService interface {
	Schedule(ctx context.Context, post *models.Post, at time.Time) (*models.Post, error)
	PollDue(ctx context.Context, now time.Time) iter.Seq2[*models.Post, error]
	Release(ctx context.Context, postID string) error
	Cancel(ctx context.Context, userID int64, postID string) (*models.Post, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error)
	RecoverStale(ctx context.Context, now time.Time) (int, error)
}

const (
	// StalePublishAfter is longer than a full run of publish attempts.
	StalePublishAfter   = 15 * time.Minute
	StaleTransformAfter = 10 * time.Minute
)

type schedulerService struct {
	pr        repository.PostRepository
	validator ConstraintValidator
	now       func() time.Time
}

func NewSchedulerService(pr repository.PostRepository, validator ConstraintValidator) SchedulerService {
	return &schedulerService{pr: pr, validator: validator, now: time.Now}
}

// Schedule moves a ready post to scheduled for publishing at the given time.
func (s *schedulerService) Schedule(ctx context.Context, post *models.Post, at time.Time) (*models.Post, error) {
	if !at.After(s.now()) {
		return nil, apperrors.ErrTimeInPast
	}
	if post.Status != models.PostStatusReady {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}
	if err := s.validator.Validate(post.FinalContent(), post.PlatformID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMedia(post.PlatformID, len(post.MediaAssetIDs)); err != nil {
		return nil, err
	}

	at = at.UTC()
	scheduled := post.Clone()
	scheduled.Status = models.PostStatusScheduled
	scheduled.ScheduledTime = &at
	scheduled.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, scheduled, models.PostStatusReady)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post %s changed state", post.ID)
	}

	slog.Info("post scheduled", "post_id", post.ID, "platform", post.PlatformID, "at", at)
	return scheduled, nil
}

// PollDue lists due posts when iteration starts and claims each one
// (scheduled to publishing) right before yielding it. Posts claimed by a
// concurrent poller are skipped, so no post is delivered twice. Stopping
// early leaves the remaining posts scheduled.
func (s *schedulerService) PollDue(ctx context.Context, now time.Time) iter.Seq2[*models.Post, error] {
	return func(yield func(*models.Post, error) bool) {
		due, err := s.pr.ListDue(ctx, now)
		if err != nil {
			yield(nil, err)
			return
		}

		for _, post := range due {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			ok, err := s.pr.CompareAndSetStatus(ctx, post.ID, models.PostStatusScheduled, models.PostStatusPublishing)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !ok {
				continue
			}

			post.Status = models.PostStatusPublishing
			if !yield(post, nil) {
				return
			}
		}
	}
}

// Release hands a claimed post back to the scheduler.
func (s *schedulerService) Release(ctx context.Context, postID string) error {
	ok, err := s.pr.CompareAndSetStatus(ctx, postID, models.PostStatusPublishing, models.PostStatusScheduled)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrInvalidState.WithDetails("post %s is not publishing", postID)
	}
	return nil
}

func (s *schedulerService) Cancel(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, apperrors.ErrPostNotFound.WithDetails("%s", postID)
	}

	if post.Status != models.PostStatusScheduled {
		return nil, apperrors.ErrInvalidState.WithDetails("post is %s", post.Status)
	}

	post.Status = models.PostStatusReady
	post.ScheduledTime = nil
	post.UpdatedAt = s.now()
	ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusScheduled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrInvalidState.WithDetails("post %s changed state", post.ID)
	}
	return post, nil
}

// RecoverStale unblocks posts left behind by a publish or transformation
// that never finished. Publishing posts older than StalePublishAfter become
// failed so they can be retried; drafts stuck in transformation longer than
// StaleTransformAfter go back to draft.
func (s *schedulerService) RecoverStale(ctx context.Context, now time.Time) (int, error) {
	recovered := 0

	stuck, err := s.pr.ListStale(ctx, models.PostStatusPublishing, now.Add(-StalePublishAfter))
	if err != nil {
		return 0, err
	}
	for _, post := range stuck {
		msg := fmt.Sprintf("publish did not finish within %s", StalePublishAfter)
		post.Status = models.PostStatusFailed
		post.LastError = &msg
		post.UpdatedAt = now
		ok, err := s.pr.CompareAndUpdate(ctx, post, models.PostStatusPublishing)
		if err != nil {
			return recovered, err
		}
		if ok {
			slog.Warn("stale publishing post marked failed", "post_id", post.ID, "platform", post.PlatformID)
			recovered++
		}
	}

	pending, err := s.pr.ListStale(ctx, models.PostStatusPendingTransform, now.Add(-StaleTransformAfter))
	if err != nil {
		return recovered, err
	}
	for _, post := range pending {
		ok, err := s.pr.CompareAndSetStatus(ctx, post.ID, models.PostStatusPendingTransform, models.PostStatusDraft)
		if err != nil {
			return recovered, err
		}
		if ok {
			slog.Warn("stale submission returned to draft", "post_id", post.ID)
			recovered++
		}
	}
	return recovered, nil
}

func (s *schedulerService) ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByStatus(ctx, userID, models.PostStatusScheduled)
}
