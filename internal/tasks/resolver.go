package tasks

import (
	"context"
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var playlistIDPattern = regexp.MustCompile(`playlist/([a-zA-Z0-9]+)`)

// ExtractPlaylistID returns the alphanumeric id following "playlist/" in ref.
func ExtractPlaylistID(ref string) (string, bool) {
	m := playlistIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Playlist is a resolved playlist: its id and ordered tracks.
type Playlist struct {
	ID     string
	Tracks []models.Track
}

// Resolver turns playlist references into ordered track lists.
type Resolver struct {
	provider services.MetadataProvider
	logger   *log.Logger
}

// NewResolver creates a Resolver backed by provider.
func NewResolver(provider services.MetadataProvider, logger *log.Logger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Resolve validates ref, authenticates and fetches the playlist's tracks.
//
// An unparsable reference fails with [shared.ErrInvalidPlaylistRef] before any network call.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Playlist, error) {
	id, ok := ExtractPlaylistID(ref)
	if !ok {
		return nil, fmt.Errorf("%w: no playlist/<id> segment in %q", shared.ErrInvalidPlaylistRef, ref)
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: metadata provider not initialized", shared.ErrServiceUnavailable)
	}

	cred, err := r.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, cred, id)
}

func (r *Resolver) authenticate(ctx context.Context) (*services.Credential, error) {
	cred, err := r.provider.Authenticate(ctx)
	if err != nil {
		r.logger.Error("authentication failed", "provider", r.provider.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return cred, nil
}

func (r *Resolver) fetch(ctx context.Context, cred *services.Credential, id string) (*Playlist, error) {
	tracks, err := r.provider.PlaylistTracks(ctx, cred, id)
	if err != nil {
		r.logger.Error("failed to fetch playlist tracks", "playlist", id, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrPlaylistFetch, id, err)
	}
	r.logger.Debug("resolved playlist", "playlist", id, "tracks", len(tracks))
	return &Playlist{ID: id, Tracks: tracks}, nil
}

// BulkOpts controls [Resolver.ResolveAll].
type BulkOpts struct {
	NumWorkers int     // Concurrent playlist fetches (default: 3)
	RateLimit  float64 // Provider requests per second (default: 5)
}

// ResolveAll resolves several references with one credential and merges their tracks.
//
// Every reference is validated before the first network call. Playlists are fetched
// concurrently under a rate limiter; the merged list keeps reference order and drops
// tracks whose key already appeared. The merged playlist id joins the ids with "+".
func (r *Resolver) ResolveAll(ctx context.Context, refs []string, opts BulkOpts) (*Playlist, error) {
	if len(refs) == 1 {
		return r.Resolve(ctx, refs[0])
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no playlist references", shared.ErrMissingArgument)
	}

	ids := make([]string, len(refs))
	for i, ref := range refs {
		id, ok := ExtractPlaylistID(ref)
		if !ok {
			return nil, fmt.Errorf("%w: no playlist/<id> segment in %q", shared.ErrInvalidPlaylistRef, ref)
		}
		ids[i] = id
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: metadata provider not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}

	cred, err := r.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	playlists := make([]*Playlist, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumWorkers)
	for i, id := range ids {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			pl, err := r.fetch(gctx, cred, id)
			if err != nil {
				return err
			}
			playlists[i] = pl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Playlist{}
	seen := make(map[string]struct{})
	for i, pl := range playlists {
		if i > 0 {
			merged.ID += "+"
		}
		merged.ID += pl.ID
		for _, t := range pl.Tracks {
			if _, dup := seen[t.Key()]; dup {
				continue
			}
			seen[t.Key()] = struct{}{}
			merged.Tracks = append(merged.Tracks, t)
		}
	}
	return merged, nil
}
