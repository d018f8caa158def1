package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrCapacity is returned when the model ran out of resources for the
	// requested parameters. A smaller request may still succeed.
	ErrCapacity = errors.New("image model out of capacity")
	// ErrWarming is returned while the model is being loaded.
	ErrWarming = errors.New("image model is loading")
)

// ImageRequest is one text-to-image call.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	Guidance       float64
	Seed           int64
}

type imageParameters struct {
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Seed              int64   `json:"seed"`
}

type imageInput struct {
	Inputs     string          `json:"inputs"`
	Parameters imageParameters `json:"parameters"`
}

// HuggingFaceImageGenerator calls a hosted inference endpoint that answers
// with raw image bytes.
type HuggingFaceImageGenerator struct {
	client   *http.Client
	modelURL string
	apiKey   string
}

func NewHuggingFaceImageGenerator(modelURL, apiKey string) *HuggingFaceImageGenerator {
	return &HuggingFaceImageGenerator{
		client:   &http.Client{Timeout: 2 * time.Minute},
		modelURL: modelURL,
		apiKey:   apiKey,
	}
}

func (h *HuggingFaceImageGenerator) GenerateImage(ctx context.Context, in ImageRequest) ([]byte, error) {
	payload, err := json.Marshal(imageInput{
		Inputs: in.Prompt,
		Parameters: imageParameters{
			NegativePrompt:    in.NegativePrompt,
			NumInferenceSteps: in.Steps,
			GuidanceScale:     in.Guidance,
			Width:             in.Width,
			Height:            in.Height,
			Seed:              in.Seed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.modelURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s", ErrCapacity, body)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", ErrWarming, body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("image model returned %d: %s", resp.StatusCode, body)
	}

	if len(body) == 0 {
		return nil, errors.New("image model returned an empty image")
	}
	return body, nil
}
