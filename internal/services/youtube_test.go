package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/tunepull/internal/shared"
)

func TestYouTubeService(t *testing.T) {
	t.Run("Default Base URL", func(t *testing.T) {
		svc := NewYouTubeService("", "", nil)
		if svc.api.BaseURL() != defaultYTBaseURL {
			t.Errorf("expected default base url, got %s", svc.api.BaseURL())
		}
	})

	t.Run("Search", func(t *testing.T) {
		var gotQuery, gotFilter, gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			gotFilter = r.URL.Query().Get("filter")
			gotAuth = r.Header.Get("X-Auth-File")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"videoId": "abc", "title": "Song A", "artists": [{"name": "Artist1"}]},
				{"videoId": "", "title": "Broken"},
				{"videoId": "def", "title": "Song A (Live)"}
			]`))
		}))
		defer ts.Close()

		svc := NewYouTubeService(ts.URL, "browser.json", ts.Client())
		results, err := svc.Search(context.Background(), "Song A Artist1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotQuery != "Song A Artist1" || gotFilter != "songs" {
			t.Errorf("unexpected query params q=%q filter=%q", gotQuery, gotFilter)
		}
		if gotAuth != "browser.json" {
			t.Errorf("expected X-Auth-File header, got %q", gotAuth)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Locator != "https://www.youtube.com/watch?v=abc" {
			t.Errorf("unexpected locator: %s", results[0].Locator)
		}
		if results[0].Title != "Artist1 - Song A" {
			t.Errorf("unexpected title: %s", results[0].Title)
		}
	})

	t.Run("Search Error Detail", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"detail": "proxy not authenticated"}`))
		}))
		defer ts.Close()

		_, err := NewYouTubeService(ts.URL, "", ts.Client()).Search(context.Background(), "q")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if got := err.Error(); !strings.Contains(got, "proxy not authenticated") {
			t.Errorf("expected detail in error, got %q", got)
		}
	})
}

