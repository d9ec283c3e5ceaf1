package preview

import (
	"html"
	"mime"
	"net/http"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/output"
)

// Handler serves a rendered site out of a memory store. Requests the store
// cannot answer fall through to the output directory on disk, where static
// files and processed images land.
type Handler struct {
	store    *output.MemoryStore
	fallback http.Handler
	hub      *LiveReloadHub
	metrics  http.Handler
	status   *buildStatus
}

// NewHandler wires the preview routes. metricsHandler may be nil.
func NewHandler(store *output.MemoryStore, outputDir string, hub *LiveReloadHub, metricsHandler http.Handler, status *buildStatus) *Handler {
	if status == nil {
		status = &buildStatus{}
	}
	return &Handler{
		store:    store,
		fallback: http.FileServer(http.Dir(outputDir)),
		hub:      hub,
		metrics:  metricsHandler,
		status:   status,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/livereload":
		h.hub.ServeHTTP(w, r)
		return
	case "/livereload.js":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(ClientScript))
		return
	case "/metrics":
		if h.metrics != nil {
			h.metrics.ServeHTTP(w, r)
			return
		}
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if failed, err, hasGood := h.status.get(); failed && !hasGood {
		h.serveBuildError(w, err)
		return
	}

	p := r.URL.Path
	if body, ok := h.store.Lookup(p); ok {
		h.serveBytes(w, r, p, body, http.StatusOK)
		return
	}
	// Directory requests without a trailing slash redirect like a file server.
	if !strings.HasSuffix(p, "/") && path.Ext(p) == "" {
		if _, ok := h.store.Lookup(p + "/"); ok {
			target := p + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
	}

	rec := &statusRecorder{ResponseWriter: w, header: http.Header{}}
	h.fallback.ServeHTTP(rec, r)
	if rec.status != http.StatusNotFound {
		rec.flush()
		return
	}
	if body, ok := h.store.Lookup("/404.html"); ok {
		h.serveBytes(w, r, "/404.html", body, http.StatusNotFound)
		return
	}
	http.NotFound(w, r)
}

func (h *Handler) serveBytes(w http.ResponseWriter, r *http.Request, p string, body []byte, status int) {
	ext := path.Ext(p)
	if ext == "" || strings.HasSuffix(p, "/") {
		ext = ".html"
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = http.DetectContentType(body)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func (h *Handler) serveBuildError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("<!doctype html><html><head><title>Build failed</title>" + output.LiveReloadScript +
		"</head><body><h1>Build failed</h1><pre>" + html.EscapeString(err.Error()) + "</pre></body></html>"))
}

// statusRecorder buffers the fallback's response so a 404 can be replaced
// by the site's own not-found page.
type statusRecorder struct {
	http.ResponseWriter
	header http.Header
	status int
	body   []byte
}

func (s *statusRecorder) Header() http.Header { return s.header }

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	s.body = append(s.body, b...)
	return len(b), nil
}

func (s *statusRecorder) flush() {
	for k, v := range s.header {
		s.ResponseWriter.Header()[k] = v
	}
	if s.status == 0 {
		s.status = http.StatusOK
	}
	s.ResponseWriter.WriteHeader(s.status)
	_, _ = s.ResponseWriter.Write(s.body)
}
