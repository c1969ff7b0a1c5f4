package tasks

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
	tu "github.com/desertthunder/tunepull/internal/testing"
)

var discard = shared.NewLogger(io.Discard)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"open url", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M", true},
		{"query string", "https://open.example/playlist/ABC123?si=xyz", "ABC123", true},
		{"scenario", "https://open.example/playlist/ABC123", "ABC123", true},
		{"album url", "https://open.spotify.com/album/ABC123", "", false},
		{"empty id", "https://open.example/playlist/", "", false},
		{"bare id", "ABC123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPlaylistID(tt.ref)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractPlaylistID(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolver(t *testing.T) {
	tracks := []models.Track{{Title: "Song A", Artist: "Artist1"}}

	t.Run("Resolve", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{Tracks: map[string][]models.Track{"ABC123": tracks}}
		pl, err := NewResolver(provider, discard).Resolve(context.Background(), "https://open.example/playlist/ABC123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != "ABC123" || len(pl.Tracks) != 1 {
			t.Errorf("unexpected playlist: %+v", pl)
		}
	})

	t.Run("Invalid Reference Makes No Calls", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{}
		_, err := NewResolver(provider, discard).Resolve(context.Background(), "not a playlist")
		if !errors.Is(err, shared.ErrInvalidPlaylistRef) {
			t.Fatalf("expected ErrInvalidPlaylistRef, got %v", err)
		}
		if auth, fetch := provider.Calls(); auth != 0 || fetch != 0 {
			t.Errorf("expected no provider calls, got auth=%d fetch=%d", auth, fetch)
		}
	})

	t.Run("Auth Failure", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{AuthErr: errors.New("invalid_client")}
		_, err := NewResolver(provider, discard).Resolve(context.Background(), "https://open.example/playlist/ABC123")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if _, fetch := provider.Calls(); fetch != 0 {
			t.Error("playlist should not be fetched after auth failure")
		}
	})

	t.Run("Fetch Failure", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{FetchErr: shared.ErrAPIRequest}
		_, err := NewResolver(provider, discard).Resolve(context.Background(), "https://open.example/playlist/ABC123")
		if !errors.Is(err, shared.ErrPlaylistFetch) || !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrPlaylistFetch wrapping ErrAPIRequest, got %v", err)
		}
	})

	t.Run("ResolveAll Merges In Order", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{Tracks: map[string][]models.Track{
			"P1": {{Title: "Song A", Artist: "Artist1"}, {Title: "Song B", Artist: "Artist2"}},
			"P2": {{Title: "Song B", Artist: "Artist2"}, {Title: "Song C", Artist: "Artist3"}},
		}}

		pl, err := NewResolver(provider, discard).ResolveAll(context.Background(),
			[]string{"https://open.example/playlist/P1", "https://open.example/playlist/P2"},
			BulkOpts{NumWorkers: 2, RateLimit: 100})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if pl.ID != "P1+P2" {
			t.Errorf("expected merged id P1+P2, got %s", pl.ID)
		}
		want := []string{"Artist1 - Song A", "Artist2 - Song B", "Artist3 - Song C"}
		if len(pl.Tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %d", len(want), len(pl.Tracks))
		}
		for i, w := range want {
			if pl.Tracks[i].Key() != w {
				t.Errorf("track %d: expected %q, got %q", i, w, pl.Tracks[i].Key())
			}
		}
		if auth, _ := provider.Calls(); auth != 1 {
			t.Errorf("expected a single authentication, got %d", auth)
		}
	})

	t.Run("ResolveAll Validates Every Reference First", func(t *testing.T) {
		provider := &tu.MockMetadataProvider{}
		_, err := NewResolver(provider, discard).ResolveAll(context.Background(),
			[]string{"https://open.example/playlist/P1", "bogus"}, BulkOpts{})
		if !errors.Is(err, shared.ErrInvalidPlaylistRef) {
			t.Fatalf("expected ErrInvalidPlaylistRef, got %v", err)
		}
		if auth, fetch := provider.Calls(); auth != 0 || fetch != 0 {
			t.Errorf("expected no provider calls, got auth=%d fetch=%d", auth, fetch)
		}
	})
}

func TestLocator(t *testing.T) {
	track := models.Track{Title: "Song A", Artist: "Artist1"}

	t.Run("First Result Wins", func(t *testing.T) {
		search := &tu.MockSearchProvider{Results: map[string][]services.SearchResult{
			"Song A Artist1": {{Locator: "https://yt/1"}, {Locator: "https://yt/2"}},
		}}
		got, err := NewLocator(search, discard).Locate(context.Background(), track)
		if err != nil || got != "https://yt/1" {
			t.Errorf("expected https://yt/1, got %q %v", got, err)
		}
		if search.Queries[0] != "Song A Artist1" {
			t.Errorf("expected query %q, got %q", "Song A Artist1", search.Queries[0])
		}
	})

	t.Run("Empty Results", func(t *testing.T) {
		search := &tu.MockSearchProvider{}
		got, err := NewLocator(search, discard).Locate(context.Background(), track)
		if got != "" || err != nil {
			t.Errorf("expected no match without error, got %q %v", got, err)
		}
	})

	t.Run("Search Error", func(t *testing.T) {
		search := &tu.MockSearchProvider{Errs: map[string]error{"Song A Artist1": errors.New("boom")}}
		got, err := NewLocator(search, discard).Locate(context.Background(), track)
		if got != "" {
			t.Errorf("expected no locator on search error, got %q", got)
		}
		if !errors.Is(err, shared.ErrSearch) {
			t.Errorf("expected ErrSearch, got %v", err)
		}
	})
}
