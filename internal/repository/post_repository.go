package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, raw_content, transformed_content, tone, platform_id, scheduled_time,
	status, last_error, attempt_count, external_id, receipt_url, published_at, receipt_payload,
	created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO posts (id, user_id, raw_content, transformed_content, tone, platform_id,
			scheduled_time, status, last_error, attempt_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query, post.ID, post.UserID, post.RawContent, post.TransformedContent,
		post.Tone, post.PlatformID, post.ScheduledTime, string(post.Status), post.LastError,
		post.AttemptCount, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if err = r.replaceMedia(ctx, tx, post.ID, post.MediaAssetIDs); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postRepository) CompareAndUpdate(ctx context.Context, post *models.Post, from models.PostStatus) (swapped bool, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil || !swapped {
			tx.Rollback()
		}
	}()

	var externalID, receiptURL sql.NullString
	var publishedAt sql.NullTime
	var payload []byte
	if post.Receipt != nil {
		externalID = sql.NullString{String: post.Receipt.ExternalID, Valid: true}
		receiptURL = sql.NullString{String: post.Receipt.URL, Valid: post.Receipt.URL != ""}
		publishedAt = sql.NullTime{Time: post.Receipt.PublishedAt, Valid: true}
		payload = post.Receipt.Payload
	}

	query := `
		UPDATE posts
		SET raw_content = $2,
			transformed_content = $3,
			tone = $4,
			platform_id = $5,
			scheduled_time = $6,
			status = $7,
			last_error = $8,
			attempt_count = $9,
			external_id = $10,
			receipt_url = $11,
			published_at = $12,
			receipt_payload = $13,
			updated_at = $14
		WHERE id = $1 AND status = $15
	`
	result, err := tx.ExecContext(ctx, query, post.ID, post.RawContent, post.TransformedContent, post.Tone,
		post.PlatformID, post.ScheduledTime, string(post.Status), post.LastError, post.AttemptCount,
		externalID, receiptURL, publishedAt, payload, post.UpdatedAt, string(from))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	if affected != 1 {
		return false, nil
	}

	if err = r.replaceMedia(ctx, tx, post.ID, post.MediaAssetIDs); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *postRepository) replaceMedia(ctx context.Context, tx *sql.Tx, postID string, assetIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_media WHERE post_id = $1`, postID); err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO post_media (post_id, asset_id, display_order)
		VALUES ($1, $2, $3)
	`
	for i, assetID := range assetIDs {
		if _, err := tx.ExecContext(ctx, query, postID, assetID, i); err != nil {
			slog.Info(err.Error())
			return err
		}
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if err := r.loadMedia(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			updated_at = $4
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, string(from), string(to), time.Now())
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) ListByStatus(ctx context.Context, userID int64, status models.PostStatus) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1`
	args := []interface{}{string(status)}
	if userID != 0 {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY scheduled_time ASC NULLS LAST, created_at ASC, id ASC`

	return r.list(ctx, query, args...)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC, id ASC`

	return r.list(ctx, query, string(models.PostStatusScheduled), now)
}

func (r *postRepository) ListStale(ctx context.Context, status models.PostStatus, before time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND updated_at < $2
		ORDER BY id ASC`

	return r.list(ctx, query, string(status), before)
}

func (r *postRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	for _, post := range posts {
		if err := r.loadMedia(ctx, post); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *postRepository) loadMedia(ctx context.Context, post *models.Post) error {
	query := `SELECT asset_id FROM post_media WHERE post_id = $1 ORDER BY display_order ASC`
	rows, err := r.db.QueryContext(ctx, query, post.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer rows.Close()

	post.MediaAssetIDs = nil
	for rows.Next() {
		var assetID string
		if err := rows.Scan(&assetID); err != nil {
			slog.Info(err.Error())
			return err
		}
		post.MediaAssetIDs = append(post.MediaAssetIDs, assetID)
	}
	return rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post                                        models.Post
		status                                      string
		transformed, lastError, externalID, recURL sql.NullString
		scheduled, publishedAt                      sql.NullTime
		payload                                     []byte
	)

	err := row.Scan(&post.ID, &post.UserID, &post.RawContent, &transformed, &post.Tone, &post.PlatformID,
		&scheduled, &status, &lastError, &post.AttemptCount, &externalID, &recURL, &publishedAt, &payload,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatus(status)
	if transformed.Valid {
		post.TransformedContent = &transformed.String
	}
	if lastError.Valid {
		post.LastError = &lastError.String
	}
	if scheduled.Valid {
		post.ScheduledTime = &scheduled.Time
	}
	if externalID.Valid {
		post.Receipt = &models.PublishedReceipt{
			PostID:      post.ID,
			PlatformID:  post.PlatformID,
			ExternalID:  externalID.String,
			URL:         recURL.String,
			PublishedAt: publishedAt.Time,
			Payload:     payload,
		}
	}
	return &post, nil
}
