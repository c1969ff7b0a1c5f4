package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/services"
	"github.com/desertthunder/tunepull/internal/shared"
)

// Locator picks a source for a track: the first search result, or nothing.
type Locator struct {
	search services.SearchProvider
	logger *log.Logger
}

// NewLocator creates a Locator backed by search.
func NewLocator(search services.SearchProvider, logger *log.Logger) *Locator {
	return &Locator{search: search, logger: logger}
}

// Locate issues one search for the track's query. An empty locator means no match; a
// search failure also yields no locator, with an error wrapping [shared.ErrSearch] that
// callers record against the track rather than abort on.
func (l *Locator) Locate(ctx context.Context, track models.Track) (string, error) {
	query := track.Query()
	results, err := l.search.Search(ctx, query)
	if err != nil {
		l.logger.Warn("search failed", "query", query, "error", err)
		return "", fmt.Errorf("%w: %s: %v", shared.ErrSearch, query, err)
	}
	for _, r := range results {
		if r.Locator != "" {
			return r.Locator, nil
		}
	}
	return "", nil
}
