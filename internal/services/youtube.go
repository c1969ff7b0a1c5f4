// YouTube Music proxy [SearchProvider] implementation
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultYTBaseURL string = "http://localhost:8080"
	watchURL         string = "https://www.youtube.com/watch?v="
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a search hit in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// YouTubeService implements [SearchProvider] via the proxy's song search.
type YouTubeService struct {
	api         *APIClient
	headersPath string
}

// NewYouTubeService creates a new YouTube Music search client.
//
// headersPath, when set, is forwarded as X-Auth-File so the proxy can use an authenticated session.
func NewYouTubeService(baseURL, headersPath string, httpClient *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		api:         NewAPIClient(baseURL, httpClient),
		headersPath: headersPath,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Search calls GET /api/search?q={query}&filter=songs and returns watch URLs in proxy order.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	header := http.Header{}
	if y.headersPath != "" {
		header.Set("X-Auth-File", y.headersPath)
	}

	var hits []YouTubeTrack
	if err := y.api.GetJSON(ctx, endpoint, header, &hits); err != nil {
		return nil, fmt.Errorf("youtube music search %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.VideoID == "" {
			continue
		}
		results = append(results, SearchResult{Locator: watchURL + h.VideoID, Title: h.title()})
	}
	return results, nil
}

func (t YouTubeTrack) title() string {
	if len(t.Artists) == 0 {
		return t.Title
	}
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ") + " - " + t.Title
}
