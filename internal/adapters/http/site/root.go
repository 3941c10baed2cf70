// Package site serves the embedded dashboard that charts analysis results.
package site

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/dietlens/pkg/logger"
)

// ErrServe is returned when a dashboard asset cannot be written.
var ErrServe = errors.New("dashboard serve failed")

const indexFile = "index.html"

// Register attaches the dashboard routes to mux: the page at / and its
// assets under /assets/.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	h := NewRootHandler()
	mux.HandleFunc("/{$}", h.HandleRoot)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(FS())))
}

// RootHandler serves the dashboard page.
type RootHandler struct {
	page []byte
	log  logger.Logger
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	page, err := staticFS.ReadFile("static/" + indexFile)
	if err != nil {
		panic(err)
	}
	return &RootHandler{page: page, log: logger.Get().Named("site")}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(h.page); err != nil {
		h.log.Warn(r.Context(), "write dashboard", logger.Error(errors.Join(ErrServe, err)))
	}
}
