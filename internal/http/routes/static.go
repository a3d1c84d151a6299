package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// MountStatic serves the optional browser UI from dir: index.html at "/" and
// assets under "/static/". Nothing is mounted when dir does not exist.
func MountStatic(r chi.Router, dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	fs := http.StripPrefix("/static/", http.FileServer(http.Dir(dir)))
	r.Handle("/static/*", fs)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(dir, "index.html"))
	})
	return true
}
