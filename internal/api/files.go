package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleUploadedFile serves one stored upload. Only plain file names inside
// the upload directory are served.
func (s *Server) handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(filepath.Join(s.intake.Dir(), name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
	h.Set("Access-Control-Allow-Credentials", "true")
	if strings.EqualFold(filepath.Ext(name), ".glb") {
		h.Set("Content-Type", "model/gltf-binary")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
