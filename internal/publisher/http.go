package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// client is the small JSON-over-HTTP helper shared by the adapters.
type client struct {
	platformID string
	http       *http.Client
}

func newClient(platformID string, hc *http.Client) client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return client{platformID: platformID, http: hc}
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx answers are
// classified; the raw body is returned for receipts.
func (c client) do(req *http.Request, out any) ([]byte, http.Header, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, transportError(c.platformID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, transportError(c.platformID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Info("platform rejected request", "platform", c.platformID, "url", req.URL.Path, "status", resp.StatusCode)
		return nil, nil, classify(c.platformID, resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, nil, fmt.Errorf("error parsing %s response: %w", c.platformID, err)
		}
	}
	return body, resp.Header, nil
}

func newJSONRequest(ctx context.Context, url, bearer string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req, nil
}

func (c client) postJSON(ctx context.Context, url, bearer string, payload, out any) ([]byte, http.Header, error) {
	req, err := newJSONRequest(ctx, url, bearer, payload)
	if err != nil {
		return nil, nil, err
	}
	return c.do(req, out)
}

func (c client) getJSON(ctx context.Context, url, bearer string, out any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	body, _, err := c.do(req, out)
	return body, err
}

// fetch downloads a stored media object.
func (c client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	body, _, err := c.do(req, nil)
	return body, err
}
