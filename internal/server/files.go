package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// FilesHandler lists and serves artifacts from the download directory.
type FilesHandler struct {
	dir    string
	logger *log.Logger
}

// NewFilesHandler creates a FilesHandler for dir.
func NewFilesHandler(dir string, logger *log.Logger) *FilesHandler {
	return &FilesHandler{dir: dir, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *FilesHandler) Routes() []string {
	return []string{"GET /files", "GET /files/{filename}"}
}

func (h *FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if name := r.PathValue("filename"); name != "" {
		h.serveFile(w, r, name)
		return
	}
	h.list(w)
}

func (h *FilesHandler) list(w http.ResponseWriter) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		writeError(w, http.StatusNotFound, "No downloaded files found.")
		return
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasSuffix(e.Name(), ".part") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

func (h *FilesHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	if !validFilename(name) {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}

	path := filepath.Join(h.dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.logger.Error("failed to open artifact", "path", path, "error", err)
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func validFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// StaticHandler serves dir, or returns nil when dir does not exist.
func StaticHandler(dir string) http.Handler {
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	return http.FileServer(http.Dir(dir))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
