// Spotify Web API implementation of [MetadataProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for
// items that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is the first page of a playlist's tracks.
type SpotifyPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyService implements [MetadataProvider] with the client credentials grant.
type SpotifyService struct {
	config *clientcredentials.Config
	api    *APIClient
}

// NewSpotifyService creates a Spotify provider from config credentials.
//
// Empty TokenURL/APIURL fall back to the public Spotify endpoints.
func NewSpotifyService(cfg shared.SpotifyConfig, httpClient *http.Client) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = spotifyBaseURL
	}

	return &SpotifyService{
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		api: NewAPIClient(apiURL, httpClient),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate performs the client credentials grant and returns a run-scoped [Credential].
func (s *SpotifyService) Authenticate(ctx context.Context) (*Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.api.httpClient)

	token, err := s.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify: %v", shared.ErrAuthFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: spotify returned an empty access token", shared.ErrAuthFailed)
	}

	return &Credential{
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
		Expiry:      token.Expiry,
	}, nil
}

// PlaylistTracks fetches the tracks of playlistID with one request.
//
// Only the provider's default page is read, so very long playlists are truncated.
// Unavailable items (null track) are dropped; artist names are joined with a space.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, cred *Credential, playlistID string) ([]models.Track, error) {
	if cred == nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: not authenticated: call Authenticate first", shared.ErrAuthFailed)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cred.AccessToken)

	var page SpotifyPlaylistTracks
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.api.GetJSON(ctx, endpoint, header, &page); err != nil {
		return nil, fmt.Errorf("spotify playlist %s: %w", playlistID, err)
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track == nil {
			continue
		}
		tracks = append(tracks, item.Track.toTrack())
	}

	return tracks, nil
}

func (t SpotifyTrack) toTrack() models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return models.Track{Title: t.Name, Artist: strings.Join(names, " ")}
}
