// Package site orchestrates a build: it loads the content tree into a
// library, runs the population and markdown passes, and drives the ordered
// render stages that write every artifact through the output layer.
//
// The library is guarded by a read/write lock owned by the Site. Mutating
// phases (load, single-document replace, population, the markdown pass)
// hold the write lock for the whole phase; render stages hold the read lock
// and fan out over the worker pool.
package site

import (
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/gitinfo"
	"git.home.luguber.info/inful/sitebuilder/internal/imageproc"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/linkcheck"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
	"git.home.luguber.info/inful/sitebuilder/internal/stylesheet"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Site is one buildable site.
type Site struct {
	cfg *config.Config

	mu  sync.RWMutex
	lib *library.Library

	md       *markdown.Renderer
	tpl      *templates.Engine
	writer   *output.Writer
	store    *output.MemoryStore
	images   *imageproc.Processor
	css      *stylesheet.Compiler
	search   search.Builder
	checker  *linkcheck.Checker
	history  *gitinfo.History
	recorder metrics.Recorder

	includeDrafts bool
	liveReload    bool
}

// Option configures a Site.
type Option func(*Site)

// WithMemoryStore renders into store instead of the output directory. The
// store is owned by the caller and reset at the start of every build.
func WithMemoryStore(store *output.MemoryStore) Option {
	return func(s *Site) { s.store = store }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Site) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithIncludeDrafts keeps draft documents.
func WithIncludeDrafts(include bool) Option {
	return func(s *Site) { s.includeDrafts = include }
}

// WithLiveReload injects the live-reload script into every HTML document.
func WithLiveReload(enabled bool) Option {
	return func(s *Site) { s.liveReload = enabled }
}

// WithSearchBuilder replaces the search index builder.
func WithSearchBuilder(b search.Builder) Option {
	return func(s *Site) { s.search = b }
}

// WithLinkChecker replaces the external link checker.
func WithLinkChecker(c *linkcheck.Checker) Option {
	return func(s *Site) { s.checker = c }
}

// New prepares a Site for cfg. Templates are parsed eagerly so syntax
// errors surface before any content is read.
func New(cfg *config.Config, opts ...Option) (*Site, error) {
	s := &Site{
		cfg:      cfg,
		lib:      library.New(cfg),
		md:       markdown.NewRenderer(cfg.Markdown),
		css:      stylesheet.NewCompiler(cfg.SassCommand),
		search:   search.JSONBuilder{},
		checker:  linkcheck.NewChecker(cfg.LinkCheck),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.images = imageproc.New(cfg.Paths.Static, cfg.BaseURL, cfg.Workers)
	if cfg.SitemapGitLastmod {
		s.history = gitinfo.New(cfg.Paths.Root)
	}

	var target output.Target = output.DiskTarget{Root: cfg.Paths.Output}
	if s.store != nil {
		target = s.store
	}
	s.writer = output.NewWriter(cfg.Paths.Output, target, output.NewPostProcessor(s.liveReload, cfg.MinifyHTML), s.recorder)

	tpl, err := templates.New(s.templateDirs(), s.templateFuncs())
	if err != nil {
		return nil, err
	}
	s.tpl = tpl
	return s, nil
}

// Config returns the site configuration.
func (s *Site) Config() *config.Config { return s.cfg }

// Store returns the memory store, or nil for disk builds.
func (s *Site) Store() *output.MemoryStore { return s.store }

// SetBaseURL changes the base URL used for future loads. The preview
// server calls it once it knows its listen address.
func (s *Site) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.BaseURL = baseURL
	s.images.SetBaseURL(baseURL)
}

// WithLibrary runs fn with read access to the library.
func (s *Site) WithLibrary(fn func(lib *library.Library)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.lib)
}

func (s *Site) templateDirs() []string {
	var dirs []string
	if theme := s.cfg.ThemeDir(); theme != "" {
		dirs = append(dirs, filepath.Join(theme, "templates"))
	}
	return append(dirs, s.cfg.Paths.Templates)
}

func (s *Site) disk() bool {
	return s.store == nil
}
