package service

import (
	"unicode/utf8"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

type ConstraintValidator interface {
	Validate(content, platformID string) error
	ValidateMedia(platformID string, mediaCount int) error
	ValidateMediaKinds(platformID string, assets []*models.MediaAsset) error
}

type constraintValidator struct {
	registry *platform.Registry
}

func NewConstraintValidator(registry *platform.Registry) ConstraintValidator {
	return &constraintValidator{registry: registry}
}

// Validate checks content length in Unicode code points against the
// platform limit. Platforms without a limit accept any length.
func (v *constraintValidator) Validate(content, platformID string) error {
	p, err := v.registry.Lookup(platformID)
	if err != nil {
		return err
	}

	max, ok := p.Limit()
	if !ok {
		return nil
	}

	if n := utf8.RuneCountInString(content); n > max {
		return &apperrors.LengthError{PlatformID: p.ID, Max: max, Actual: n}
	}
	return nil
}

func (v *constraintValidator) ValidateMedia(platformID string, mediaCount int) error {
	p, err := v.registry.Lookup(platformID)
	if err != nil {
		return err
	}

	if mediaCount > 0 && !p.SupportsMedia {
		return apperrors.ErrMediaNotSupported.WithDetails("%s", p.DisplayName)
	}
	if mediaCount == 0 && p.RequiresMedia {
		return apperrors.ErrMediaRequired.WithDetails("%s", p.DisplayName)
	}
	return nil
}

// ValidateMediaKinds rejects attachments of a kind the platform cannot post.
func (v *constraintValidator) ValidateMediaKinds(platformID string, assets []*models.MediaAsset) error {
	p, err := v.registry.Lookup(platformID)
	if err != nil {
		return err
	}

	for _, asset := range assets {
		if !p.Accepts(string(asset.Kind)) {
			return apperrors.ErrMediaNotSupported.WithDetails("%s does not accept %s attachments", p.DisplayName, asset.Kind)
		}
	}
	return nil
}
