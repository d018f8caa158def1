package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_BoundaryForEveryLimitedPlatform(t *testing.T) {
	registry := platform.NewRegistry()
	v := NewConstraintValidator(registry)

	for _, p := range registry.All() {
		max, ok := p.Limit()
		if !ok {
			continue
		}
		t.Run(p.ID, func(t *testing.T) {
			assert.NoError(t, v.Validate(strings.Repeat("a", max), p.ID))

			err := v.Validate(strings.Repeat("a", max+1), p.ID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrViolatesLength))

			var lengthErr *apperrors.LengthError
			require.True(t, errors.As(err, &lengthErr))
			assert.Equal(t, max, lengthErr.Max)
			assert.Equal(t, max+1, lengthErr.Actual)
		})
	}
}

func TestValidate_TwitterThreeHundred(t *testing.T) {
	v := NewConstraintValidator(platform.NewRegistry())

	err := v.Validate(strings.Repeat("x", 300), platform.Twitter)

	var lengthErr *apperrors.LengthError
	require.True(t, errors.As(err, &lengthErr))
	assert.Equal(t, 280, lengthErr.Max)
	assert.Equal(t, 300, lengthErr.Actual)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConstraint))
}

func TestValidate_CountsCodePoints(t *testing.T) {
	v := NewConstraintValidator(platform.NewRegistry())
	assert.NoError(t, v.Validate(strings.Repeat("é", 280), platform.Twitter))
}

func TestValidate_UnboundedAndUnknown(t *testing.T) {
	v := NewConstraintValidator(platform.NewRegistry())

	assert.NoError(t, v.Validate(strings.Repeat("a", 100000), platform.Snapchat))
	assert.ErrorIs(t, v.Validate("hi", "myspace"), apperrors.ErrPlatformNotFound)
}

func TestValidateMedia(t *testing.T) {
	v := NewConstraintValidator(platform.NewRegistry())

	assert.ErrorIs(t, v.ValidateMedia(platform.LinkedIn, 1), apperrors.ErrMediaNotSupported)
	assert.ErrorIs(t, v.ValidateMedia(platform.Instagram, 0), apperrors.ErrMediaRequired)
	assert.NoError(t, v.ValidateMedia(platform.Instagram, 1))
	assert.NoError(t, v.ValidateMedia(platform.Twitter, 0))
}

func TestValidateMediaKinds(t *testing.T) {
	v := NewConstraintValidator(platform.NewRegistry())
	asset := func(kind models.MediaKind) []*models.MediaAsset {
		return []*models.MediaAsset{{ID: "m", Kind: kind}}
	}

	assert.NoError(t, v.ValidateMediaKinds(platform.Twitter, asset(models.MediaKindImage)))
	assert.NoError(t, v.ValidateMediaKinds(platform.Twitter, asset(models.MediaKindVideo)))
	assert.NoError(t, v.ValidateMediaKinds(platform.YouTube, asset(models.MediaKindVideo)))
	assert.NoError(t, v.ValidateMediaKinds(platform.Twitter, nil))

	assert.ErrorIs(t, v.ValidateMediaKinds(platform.Twitter, asset(models.MediaKindPDF)), apperrors.ErrMediaNotSupported)
	assert.ErrorIs(t, v.ValidateMediaKinds(platform.YouTube, asset(models.MediaKindImage)), apperrors.ErrMediaNotSupported)
	assert.ErrorIs(t, v.ValidateMediaKinds(platform.Facebook, asset(models.MediaKindVideo)), apperrors.ErrMediaNotSupported)
	assert.ErrorIs(t, v.ValidateMediaKinds("myspace", nil), apperrors.ErrPlatformNotFound)
}
