// JSON-over-HTTP client shared by the Spotify API and the YouTube Music proxy
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/tunepull/internal/shared"
)

// APIClient performs GET requests against a JSON API rooted at baseURL.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client. A nil client uses [http.DefaultClient].
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the API root.
func (a *APIClient) BaseURL() string {
	return a.baseURL
}

// GetJSON performs a GET request to path and decodes the JSON body into result.
//
// Non-2xx responses fail with [shared.ErrAPIRequest]; a "detail" or "error" field in the
// body is included in the message when present.
func (a *APIClient) GetJSON(ctx context.Context, path string, header http.Header, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d%s", shared.ErrAPIRequest, resp.StatusCode, errorDetail(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

func errorDetail(body []byte) string {
	var errResp struct {
		Detail string `json:"detail"`
		Error  any    `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	if errResp.Detail != "" {
		return ": " + errResp.Detail
	}
	switch e := errResp.Error.(type) {
	case string:
		return ": " + e
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return ": " + msg
		}
	}
	return ""
}
