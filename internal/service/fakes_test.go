package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/generator"
	"github.com/maheshrc27/crosspost/internal/publisher"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects[key] = data
	return fmt.Sprintf("https://media.example.com/%s", key), nil
}

// scriptedImageGenerator answers calls from a fixed list of results.
type scriptedImageGenerator struct {
	mu       sync.Mutex
	results  []error
	requests []generator.ImageRequest
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func (g *scriptedImageGenerator) GenerateImage(ctx context.Context, req generator.ImageRequest) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	i := len(g.requests) - 1
	if i < len(g.results) && g.results[i] != nil {
		return nil, g.results[i]
	}
	return pngBytes, nil
}

func noSleep(sleeps *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
}

// fakePublisher answers publish calls from a fixed list of errors and
// succeeds once the list runs out.
type fakePublisher struct {
	mu       sync.Mutex
	errs     []error
	requests []publisher.Request
}

func (p *fakePublisher) Publish(ctx context.Context, req publisher.Request) (*publisher.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	i := len(p.requests) - 1
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return &publisher.Result{
		ExternalID: fmt.Sprintf("ext-%s", req.PostID),
		URL:        fmt.Sprintf("https://social.example.com/%s", req.PostID),
	}, nil
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
