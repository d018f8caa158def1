package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTextGenerator struct {
	mock.Mock
}

func (m *mockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestTransform_Success(t *testing.T) {
	gen := new(mockTextGenerator)
	gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Use a professional tone") &&
			strings.Contains(prompt, "under 280 characters") &&
			strings.Contains(prompt, "big news")
	})).Return("  Big news! #launch  ", nil).Once()

	tr := NewContentTransformer(platform.NewRegistry(), gen)
	out, err := tr.Transform(context.Background(), "  big news ", platform.Twitter, "")

	require.NoError(t, err)
	assert.Equal(t, "Big news! #launch", out)
	gen.AssertExpectations(t)
}

func TestTransform_EmptyInputSkipsGenerator(t *testing.T) {
	gen := new(mockTextGenerator)
	tr := NewContentTransformer(platform.NewRegistry(), gen)

	_, err := tr.Transform(context.Background(), "   \n", platform.Twitter, "casual")

	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
	gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestTransform_GeneratorFailures(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"error", "", errors.New("quota exceeded")},
		{"blank", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockTextGenerator)
			gen.On("GenerateText", mock.Anything, mock.Anything).Return(tt.out, tt.err).Once()

			_, err := NewContentTransformer(platform.NewRegistry(), gen).
				Transform(context.Background(), "hello", platform.LinkedIn, "casual")

			assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
			gen.AssertNumberOfCalls(t, "GenerateText", 1)
		})
	}
}

func TestTransform_UnboundedPlatformHasNoLengthHint(t *testing.T) {
	gen := new(mockTextGenerator)
	gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return !strings.Contains(prompt, "Keep it under")
	})).Return("snap", nil).Once()

	_, err := NewContentTransformer(platform.NewRegistry(), gen).
		Transform(context.Background(), "hello", platform.Snapchat, "")
	require.NoError(t, err)
	gen.AssertExpectations(t)
}
