package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

type credentialRepository struct {
	db  *sql.DB
	key []byte
}

// NewCredentialRepository stores tokens encrypted at rest with key.
func NewCredentialRepository(db *sql.DB, key []byte) CredentialRepository {
	return &credentialRepository{db: db, key: key}
}

func (r *credentialRepository) Upsert(ctx context.Context, cred *models.PlatformCredential) error {
	accessToken, err := utils.Encrypt([]byte(cred.AccessToken), r.key)
	if err != nil {
		return err
	}
	refreshToken := ""
	if cred.RefreshToken != "" {
		refreshToken, err = utils.Encrypt([]byte(cred.RefreshToken), r.key)
		if err != nil {
			return err
		}
	}

	var expiresAt sql.NullTime
	if !cred.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: cred.ExpiresAt, Valid: true}
	}

	query := `
		INSERT INTO platform_credentials(
			user_id,
			platform_id,
			access_token,
			refresh_token,
			expires_at,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, platform_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), platform_credentials.refresh_token),
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.ExecContext(ctx, query, cred.UserID, cred.PlatformID, accessToken, refreshToken, expiresAt, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) Get(ctx context.Context, userID int64, platformID string) (*models.PlatformCredential, error) {
	query := `
		SELECT user_id, platform_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM platform_credentials
		WHERE user_id = $1 AND platform_id = $2
	`
	cred, err := r.scan(r.db.QueryRowContext(ctx, query, userID, platformID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return cred, nil
}

func (r *credentialRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	query := `
		SELECT user_id, platform_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM platform_credentials
		WHERE user_id = $1
		ORDER BY platform_id
	`
	return r.list(ctx, query, userID)
}

// ListExpiring returns credentials that expire before the given time and
// carry a refresh token.
func (r *credentialRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformCredential, error) {
	query := `
		SELECT user_id, platform_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM platform_credentials
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND refresh_token <> ''
	`
	return r.list(ctx, query, before)
}

func (r *credentialRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.PlatformCredential, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var creds []*models.PlatformCredential
	for rows.Next() {
		cred, err := r.scan(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return creds, nil
}

func (r *credentialRepository) scan(row rowScanner) (*models.PlatformCredential, error) {
	var cred models.PlatformCredential
	var accessToken, refreshToken string
	var expiresAt sql.NullTime

	err := row.Scan(&cred.UserID, &cred.PlatformID, &accessToken, &refreshToken, &expiresAt,
		&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, err
	}

	cred.AccessToken, err = utils.Decrypt(accessToken, r.key)
	if err != nil {
		return nil, err
	}
	if refreshToken != "" {
		cred.RefreshToken, err = utils.Decrypt(refreshToken, r.key)
		if err != nil {
			return nil, err
		}
	}
	if expiresAt.Valid {
		cred.ExpiresAt = expiresAt.Time
	}
	return &cred, nil
}

func (r *credentialRepository) Remove(ctx context.Context, userID int64, platformID string) error {
	query := `DELETE FROM platform_credentials WHERE user_id = $1 AND platform_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, platformID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
