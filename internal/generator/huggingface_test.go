package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceImageGenerator_Success(t *testing.T) {
	var got imageInput
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}))
	defer server.Close()

	gen := NewHuggingFaceImageGenerator(server.URL, "hf-key")
	img, err := gen.GenerateImage(context.Background(), ImageRequest{
		Prompt:         "photograph of a cat",
		NegativePrompt: "blurry, bad quality",
		Width:          512,
		Height:         512,
		Steps:          20,
		Guidance:       7.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	assert.Equal(t, "photograph of a cat", got.Inputs)
	assert.Equal(t, 512, got.Parameters.Width)
	assert.Equal(t, 20, got.Parameters.NumInferenceSteps)
	assert.Equal(t, "blurry, bad quality", got.Parameters.NegativePrompt)
}

func TestHuggingFaceImageGenerator_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"capacity", http.StatusInternalServerError, ErrCapacity},
		{"warming", http.StatusServiceUnavailable, ErrWarming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHuggingFaceImageGenerator(server.URL, "k").GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHuggingFaceImageGenerator_OtherFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad prompt"))
	}))
	defer server.Close()

	_, err := NewHuggingFaceImageGenerator(server.URL, "k").GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCapacity))
	assert.False(t, errors.Is(err, ErrWarming))
	assert.Contains(t, err.Error(), "bad prompt")
}

func TestHuggingFaceImageGenerator_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := NewHuggingFaceImageGenerator(server.URL, "k").GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	assert.Error(t, err)
}
