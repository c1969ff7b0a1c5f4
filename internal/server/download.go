package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepull/internal/ledger"
	"github.com/desertthunder/tunepull/internal/models"
	"github.com/desertthunder/tunepull/internal/tasks"
)

const archiveName = "playlist.zip"

type downloadRequest struct {
	PlaylistURL string `json:"playlistUrl"`
}

// DownloadHandler resolves a playlist and streams its tracks back as a zip archive.
type DownloadHandler struct {
	engine *tasks.Engine
	logger *log.Logger

	Delay   time.Duration
	Retries int
	Ledger  func() ledger.Ledger // per request; defaults to a fresh in-memory ledger
}

// NewDownloadHandler creates a DownloadHandler backed by engine.
func NewDownloadHandler(engine *tasks.Engine, logger *log.Logger) *DownloadHandler {
	return &DownloadHandler{
		engine: engine,
		logger: logger,
		Ledger: func() ledger.Ledger { return ledger.NewMemory() },
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *DownloadHandler) Routes() []string {
	return []string{"POST /download"}
}

// ServeHTTP handles POST /download.
//
// Every failure that happens before the archive is opened gets a JSON error. Once the
// zip headers are written, per-track failures only shrink the archive.
func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Playlist URL is required")
		return
	}
	ref := strings.TrimSpace(req.PlaylistURL)
	if ref == "" {
		writeError(w, http.StatusBadRequest, "Playlist URL is required")
		return
	}

	ctx := r.Context()
	pl, err := h.engine.Resolve(ctx, ref, nil)
	if err != nil {
		h.logger.Error("Error in /download endpoint", "ref", ref, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process the playlist.")
		return
	}
	if len(pl.Tracks) == 0 {
		writeError(w, http.StatusNotFound, "No tracks found in the playlist.")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+archiveName+`"`)
	w.WriteHeader(http.StatusOK)

	sink := tasks.NewArchiveSink(&flushWriter{w: w, rc: http.NewResponseController(w)})
	result, err := h.engine.Acquire(ctx, pl.Tracks, tasks.AcquireOpts{
		PlaylistID: pl.ID,
		Ledger:     h.Ledger(),
		Sink:       sink,
		Delay:      h.Delay,
		Retries:    h.Retries,
	})
	if err != nil {
		h.logger.Error("acquisition aborted; archive is truncated", "playlist", pl.ID, "error", err)
	}
	if err := sink.Close(); err != nil {
		h.logger.Error("failed to finalize archive", "playlist", pl.ID, "error", err)
		return
	}
	if result != nil {
		h.logger.Info("archive sent",
			"playlist", pl.ID,
			"entries", len(sink.Entries()),
			"fetched", result.Count(models.StatusFetched),
			"failed", result.Count(models.StatusFailed))
	}
}

// flushWriter pushes every archive chunk to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}
