package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"mime"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/generator"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultWarmupBackoff is how long to wait before repeating a request that
// hit a model still loading.
const DefaultWarmupBackoff = 10 * time.Second

// ImageGenerator turns a prompt into image bytes.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req generator.ImageRequest) ([]byte, error)
}

type UploadFile struct {
	Name         string
	DeclaredMIME string
	Data         []byte
}

// GenerationReport describes how an image generation went.
type GenerationReport struct {
	Calls int    `json:"calls"`
	Stage string `json:"stage,omitempty"`
}

type MediaService interface {
	AttachUpload(ctx context.Context, userID int64, f UploadFile) (*models.MediaAsset, error)
	GenerateFromPrompt(ctx context.Context, userID int64, prompt string) (*models.MediaAsset, *GenerationReport, error)
	Get(ctx context.Context, userID int64, assetID string) (*models.MediaAsset, error)
	EnsureReady(ctx context.Context, assetIDs []string) ([]*models.MediaAsset, error)
}

type generationStage struct {
	name    string
	request func(prompt string, seed int64) generator.ImageRequest
}

// Stages are tried in order; a later stage asks less of the model.
var generationStages = []generationStage{
	{
		name: "primary",
		request: func(prompt string, seed int64) generator.ImageRequest {
			return generator.ImageRequest{
				Prompt:         "photograph of " + prompt,
				NegativePrompt: "blurry, bad quality",
				Width:          512,
				Height:         512,
				Steps:          20,
				Guidance:       7.0,
				Seed:           seed,
			}
		},
	},
	{
		name: "fallback",
		request: func(prompt string, seed int64) generator.ImageRequest {
			return generator.ImageRequest{
				Prompt:   prompt,
				Width:    384,
				Height:   384,
				Steps:    15,
				Guidance: 6.0,
				Seed:     seed,
			}
		},
	},
}

var documentTypes = map[string]struct{}{
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.oasis.opendocument.text":                                   {},
	"application/rtf": {},
	"text/rtf":        {},
	"text/plain":      {},
}

type mediaService struct {
	ma            repository.MediaAssetRepository
	blobs         BlobStore
	images        ImageGenerator
	warmupBackoff time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewMediaService(ma repository.MediaAssetRepository, blobs BlobStore, images ImageGenerator, warmupBackoff time.Duration) MediaService {
	return &mediaService{
		ma:            ma,
		blobs:         blobs,
		images:        images,
		warmupBackoff: warmupBackoff,
		sleep:         sleepContext,
	}
}

func (s *mediaService) AttachUpload(ctx context.Context, userID int64, f UploadFile) (*models.MediaAsset, error) {
	if len(f.Data) == 0 {
		return nil, apperrors.ErrEmptyInput.WithDetails("file %q has no content", f.Name)
	}

	mimeType := normalizeMIME(f.DeclaredMIME)
	if mimeType == "" || mimeType == "application/octet-stream" {
		kind, err := filetype.Match(f.Data)
		if err != nil || kind == types.Unknown {
			return nil, apperrors.ErrUnsupportedMediaType.WithDetails("could not detect type of %q", f.Name)
		}
		mimeType = kind.MIME.Value
	}

	kind, ok := classifyMIME(mimeType)
	if !ok {
		return nil, apperrors.ErrUnsupportedMediaType.WithDetails("%s", mimeType)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	url, err := s.blobs.Put(ctx, objectKey(userID, id), f.Data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	now := time.Now()
	asset := &models.MediaAsset{
		ID:              id,
		UserID:          userID,
		SourceType:      models.MediaSourceUpload,
		Kind:            kind,
		MimeType:        mimeType,
		ProcessingState: models.ProcessingReady,
		ByteRef:         url,
		Size:            int64(len(f.Data)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ma.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}
	return asset, nil
}

func (s *mediaService) GenerateFromPrompt(ctx context.Context, userID int64, prompt string) (*models.MediaAsset, *GenerationReport, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, nil, apperrors.ErrEmptyInput
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}

	now := time.Now()
	asset := &models.MediaAsset{
		ID:              id,
		UserID:          userID,
		SourceType:      models.MediaSourceGenerated,
		Kind:            models.MediaKindImage,
		ProcessingState: models.ProcessingPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ma.Create(ctx, asset); err != nil {
		return nil, nil, fmt.Errorf("error saving media asset: %w", err)
	}

	report := &GenerationReport{}
	img, genErr := s.runStages(ctx, prompt, report)
	if genErr != nil {
		slog.Info("image generation failed", "asset_id", id, "calls", report.Calls, "error", genErr)
		return s.markFailed(ctx, asset, report, genErr)
	}

	mimeType := "image/png"
	if kind, err := filetype.Match(img); err == nil && kind != types.Unknown {
		mimeType = kind.MIME.Value
	}

	url, err := s.blobs.Put(ctx, objectKey(userID, id), img, mimeType)
	if err != nil {
		return s.markFailed(ctx, asset, report, apperrors.ErrGenerationFailed.Wrap(err))
	}

	asset.MimeType = mimeType
	asset.ByteRef = url
	asset.Size = int64(len(img))
	asset.ProcessingState = models.ProcessingReady
	asset.UpdatedAt = time.Now()
	if err := s.ma.Update(ctx, asset); err != nil {
		return nil, report, fmt.Errorf("error saving media asset: %w", err)
	}
	return asset, report, nil
}

// runStages walks the strategy table. A model that is still loading gets one
// repeat of the same request after the warm-up backoff. Capacity failures
// move on to the next stage; any other failure stops immediately.
func (s *mediaService) runStages(ctx context.Context, prompt string, report *GenerationReport) ([]byte, error) {
	seed := rand.Int64N(1_000_000)

	var lastErr error
	for i, stage := range generationStages {
		report.Stage = stage.name
		req := stage.request(prompt, seed)

		img, err := s.images.GenerateImage(ctx, req)
		report.Calls++
		if errors.Is(err, generator.ErrWarming) {
			if err := s.sleep(ctx, s.warmupBackoff); err != nil {
				return nil, apperrors.ErrGenerationFailed.Wrap(err)
			}
			img, err = s.images.GenerateImage(ctx, req)
			report.Calls++
		}
		if err == nil {
			return img, nil
		}

		lastErr = err
		retryable := errors.Is(err, generator.ErrCapacity) || errors.Is(err, generator.ErrWarming)
		if i == 0 && !retryable {
			return nil, apperrors.ErrGenerationFailed.Wrap(err)
		}
	}
	return nil, apperrors.ErrGenerationExhausted.Wrap(lastErr)
}

func (s *mediaService) markFailed(ctx context.Context, asset *models.MediaAsset, report *GenerationReport, cause error) (*models.MediaAsset, *GenerationReport, error) {
	asset.ProcessingState = models.ProcessingFailed
	asset.LastError = cause.Error()
	asset.UpdatedAt = time.Now()
	if err := s.ma.Update(ctx, asset); err != nil {
		slog.Error(err.Error())
	}
	return asset, report, cause
}

func (s *mediaService) Get(ctx context.Context, userID int64, assetID string) (*models.MediaAsset, error) {
	asset, err := s.ma.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil || asset.UserID != userID {
		return nil, apperrors.ErrAssetNotFound.WithDetails("%s", assetID)
	}
	return asset, nil
}

// EnsureReady loads the assets in order and fails if any is missing or not
// ready.
func (s *mediaService) EnsureReady(ctx context.Context, assetIDs []string) ([]*models.MediaAsset, error) {
	assets := make([]*models.MediaAsset, 0, len(assetIDs))
	for _, id := range assetIDs {
		asset, err := s.ma.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			return nil, apperrors.ErrMediaNotReady.WithDetails("%s does not exist", id)
		}
		if asset.ProcessingState != models.ProcessingReady {
			return nil, apperrors.ErrMediaNotReady.WithDetails("%s is %s", id, asset.ProcessingState)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func objectKey(userID int64, id string) string {
	return fmt.Sprintf("%d/%s", userID, id)
}

func normalizeMIME(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(declared)
	}
	return mediaType
}

func classifyMIME(mimeType string) (models.MediaKind, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.MediaKindImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return models.MediaKindVideo, true
	case mimeType == "application/pdf":
		return models.MediaKindPDF, true
	}
	if _, ok := documentTypes[mimeType]; ok {
		return models.MediaKindDocument, true
	}
	return "", false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
