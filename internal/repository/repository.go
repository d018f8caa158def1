package repository

import (
	"context"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Lookups return (nil, nil) when the row does not exist.

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// CompareAndUpdate writes the whole post, including its status, only if
	// the stored status is still from. It reports whether the write happened.
	CompareAndUpdate(ctx context.Context, post *models.Post, from models.PostStatus) (bool, error)
	// CompareAndSetStatus moves a post from one status to another only if it
	// is still in the expected status. It reports whether the swap happened.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.PostStatus) (bool, error)
	ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error)
	// ListDue returns scheduled posts due at or before now, ordered by
	// scheduled time then id.
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	// ListStale returns posts in status whose last update is before cutoff.
	ListStale(ctx context.Context, status models.PostStatus, before time.Time) ([]*models.Post, error)
	Remove(ctx context.Context, id string) error
}

type MediaAssetRepository interface {
	Create(ctx context.Context, ma *models.MediaAsset) error
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	Update(ctx context.Context, ma *models.MediaAsset) error
}

type CredentialRepository interface {
	Upsert(ctx context.Context, cred *models.PlatformCredential) error
	Get(ctx context.Context, userID int64, platformID string) (*models.PlatformCredential, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformCredential, error)
	Remove(ctx context.Context, userID int64, platformID string) error
}

type SessionRepository interface {
	// Save stores a session; the store may forget it after retention.
	Save(ctx context.Context, s *models.AuthorizationSession, retention time.Duration) error
	// Take atomically returns and removes the session for state.
	Take(ctx context.Context, state string) (*models.AuthorizationSession, error)
}
