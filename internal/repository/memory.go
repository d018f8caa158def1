package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// In-memory stores back the server when no database is configured and are
// used throughout the tests. Every read and write copies the record.

type memoryPostRepository struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{posts: make(map[string]*models.Post)}
}

func (r *memoryPostRepository) Create(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *memoryPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id].Clone(), nil
}

func (r *memoryPostRepository) CompareAndUpdate(ctx context.Context, post *models.Post, from models.PostStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.posts[post.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	updated := post.Clone()
	updated.UserID = current.UserID
	updated.CreatedAt = current.CreatedAt
	r.posts[post.ID] = updated
	return true, nil
}

func (r *memoryPostRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.PostStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.Status != from {
		return false, nil
	}
	post.Status = to
	post.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryPostRepository) ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Post
	for _, post := range r.posts {
		if post.Status != status || (userID != 0 && post.UserID != userID) {
			continue
		}
		out = append(out, post.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ScheduledTime != nil && b.ScheduledTime != nil && !a.ScheduledTime.Equal(*b.ScheduledTime):
			return a.ScheduledTime.Before(*b.ScheduledTime)
		case a.ScheduledTime != nil && b.ScheduledTime == nil:
			return true
		case a.ScheduledTime == nil && b.ScheduledTime != nil:
			return false
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *memoryPostRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Post
	for _, post := range r.posts {
		if post.Status != models.PostStatusScheduled || post.ScheduledTime == nil || post.ScheduledTime.After(now) {
			continue
		}
		out = append(out, post.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(*out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(*out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryPostRepository) ListStale(ctx context.Context, status models.PostStatus, before time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Post
	for _, post := range r.posts {
		if post.Status == status && post.UpdatedAt.Before(before) {
			out = append(out, post.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryPostRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

type memoryMediaAssetRepository struct {
	mu     sync.Mutex
	assets map[string]models.MediaAsset
}

func NewMemoryMediaAssetRepository() MediaAssetRepository {
	return &memoryMediaAssetRepository{assets: make(map[string]models.MediaAsset)}
}

func (r *memoryMediaAssetRepository) Create(ctx context.Context, ma *models.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[ma.ID] = *ma
	return nil
}

func (r *memoryMediaAssetRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ma, ok := r.assets[id]
	if !ok {
		return nil, nil
	}
	return &ma, nil
}

func (r *memoryMediaAssetRepository) Update(ctx context.Context, ma *models.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.assets[ma.ID]
	if !ok {
		return nil
	}
	next := *ma
	if current.ProcessingState == models.ProcessingReady {
		next.ByteRef = current.ByteRef
	}
	r.assets[ma.ID] = next
	return nil
}

type credentialKey struct {
	userID     int64
	platformID string
}

type memoryCredentialRepository struct {
	mu    sync.Mutex
	creds map[credentialKey]models.PlatformCredential
}

func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{creds: make(map[credentialKey]models.PlatformCredential)}
}

func (r *memoryCredentialRepository) Upsert(ctx context.Context, cred *models.PlatformCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := credentialKey{cred.UserID, cred.PlatformID}
	next := *cred
	now := time.Now()
	next.UpdatedAt = now
	if current, ok := r.creds[key]; ok {
		next.CreatedAt = current.CreatedAt
		if next.RefreshToken == "" {
			next.RefreshToken = current.RefreshToken
		}
	} else {
		next.CreatedAt = now
	}
	r.creds[key] = next
	return nil
}

func (r *memoryCredentialRepository) Get(ctx context.Context, userID int64, platformID string) (*models.PlatformCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[credentialKey{userID, platformID}]
	if !ok {
		return nil, nil
	}
	return &cred, nil
}

func (r *memoryCredentialRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PlatformCredential
	for key, cred := range r.creds {
		if key.userID == userID {
			c := cred
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlatformID < out[j].PlatformID })
	return out, nil
}

func (r *memoryCredentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PlatformCredential
	for _, cred := range r.creds {
		if cred.ExpiresAt.IsZero() || !cred.ExpiresAt.Before(before) || cred.RefreshToken == "" {
			continue
		}
		c := cred
		out = append(out, &c)
	}
	return out, nil
}

func (r *memoryCredentialRepository) Remove(ctx context.Context, userID int64, platformID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creds, credentialKey{userID, platformID})
	return nil
}

type memorySession struct {
	session  models.AuthorizationSession
	deadline time.Time
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]memorySession), now: time.Now}
}

func (r *memorySessionRepository) Save(ctx context.Context, s *models.AuthorizationSession, retention time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for state, ms := range r.sessions {
		if now.After(ms.deadline) {
			delete(r.sessions, state)
		}
	}
	r.sessions[s.State] = memorySession{session: *s, deadline: now.Add(retention)}
	return nil
}

func (r *memorySessionRepository) Take(ctx context.Context, state string) (*models.AuthorizationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(r.sessions, state)
	if r.now().After(ms.deadline) {
		return nil, nil
	}
	return &ms.session, nil
}
