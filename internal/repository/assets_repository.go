package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, ma *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (id, user_id, source_type, kind, mime_type, processing_state,
			byte_ref, size, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query, ma.ID, ma.UserID, string(ma.SourceType), string(ma.Kind),
		ma.MimeType, string(ma.ProcessingState), ma.ByteRef, ma.Size, ma.LastError, ma.CreatedAt, ma.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	query := `
		SELECT id, user_id, source_type, kind, mime_type, processing_state, byte_ref, size,
			last_error, created_at, updated_at
		FROM media_assets
		WHERE id = $1
	`

	var ma models.MediaAsset
	var sourceType, kind, state string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ma.ID,
		&ma.UserID,
		&sourceType,
		&kind,
		&ma.MimeType,
		&state,
		&ma.ByteRef,
		&ma.Size,
		&ma.LastError,
		&ma.CreatedAt,
		&ma.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	ma.SourceType = models.MediaSourceType(sourceType)
	ma.Kind = models.MediaKind(kind)
	ma.ProcessingState = models.ProcessingState(state)
	return &ma, nil
}

// Update writes processing results. A ready asset's byte_ref is never
// overwritten.
func (r *mediaAssetRepository) Update(ctx context.Context, ma *models.MediaAsset) error {
	query := `
		UPDATE media_assets
		SET mime_type = $2,
			kind = $3,
			processing_state = $4,
			byte_ref = CASE WHEN processing_state = 'ready' THEN byte_ref ELSE $5 END,
			size = $6,
			last_error = $7,
			updated_at = $8
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, ma.ID, ma.MimeType, string(ma.Kind), string(ma.ProcessingState),
		ma.ByteRef, ma.Size, ma.LastError, ma.UpdatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
