// package services defines the collaborator interfaces consumed by the pipeline
//
// Spotify (metadata), YouTube / yt-dlp (search + media), ffmpeg (transcode), id3 (tags)
package services

import (
	"context"
	"io"
	"time"

	"github.com/desertthunder/tunepull/internal/models"
)

// Credential is a short-lived access token scoped to a single run.
type Credential struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// MetadataProvider resolves playlist membership.
type MetadataProvider interface {
	// Authenticate acquires a service-level credential (no end-user auth).
	Authenticate(ctx context.Context) (*Credential, error)

	// PlaylistTracks returns the ordered tracks of a playlist with a single provider call.
	PlaylistTracks(ctx context.Context, cred *Credential, playlistID string) ([]models.Track, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

// SearchResult is one candidate returned by a [SearchProvider].
type SearchResult struct {
	Locator string
	Title   string
}

// SearchProvider turns a text query into candidate locators, best first.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// MediaSource opens an audio-only stream at the highest available quality.
type MediaSource interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// Transcoder encodes r to a constant bitrate MP3 at dst.
type Transcoder interface {
	Transcode(ctx context.Context, r io.Reader, dst string) error
}

// Tagger writes track metadata into an artifact.
type Tagger interface {
	Tag(path string, track models.Track) error
}
