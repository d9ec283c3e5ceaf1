// Package preview serves a site from memory while watching its sources.
// Edits to a single markdown file re-render just that document; anything
// else rebuilds as much as the change requires. Browsers reload through a
// Server-Sent Events channel.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Options configures a preview Server.
type Options struct {
	Root          string
	ConfigPath    string
	Interface     string
	Port          int
	IncludeDrafts bool
	// Registry, when set, receives build metrics and is served at /metrics.
	Registry *prom.Registry
}

// buildStatus tracks the last build outcome for the error page.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
}

func (bs *buildStatus) setError(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
}

func (bs *buildStatus) setSuccess() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = nil
	bs.hasGoodBuild = true
}

func (bs *buildStatus) get() (failed bool, err error, hasGoodBuild bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastError != nil, bs.lastError, bs.hasGoodBuild
}

// Server is a running preview session.
type Server struct {
	opts       Options
	configFile string
	baseURL    string

	store    *output.MemoryStore
	hub      *LiveReloadHub
	recorder metrics.Recorder
	status   *buildStatus
	listener net.Listener

	// site is only touched by the initial build and the rebuild worker.
	site *site.Site
}

// New binds the listen address and prepares the site. The bound address
// becomes the site's base URL, so Port 0 picks a free port.
func New(opts Options) (*Server, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "resolve site root").Build()
	}
	opts.Root = root
	if opts.Interface == "" {
		opts.Interface = "127.0.0.1"
	}
	configFile := opts.ConfigPath
	if configFile == "" {
		configFile = config.DefaultFilename
	}
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(root, configFile)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(opts.Interface, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, foundation.NetworkError("listen for preview server").
			WithContext("address", net.JoinHostPort(opts.Interface, strconv.Itoa(opts.Port))).
			WithContext("cause", err.Error()).
			UserAction().Build()
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if opts.Registry != nil {
		recorder = metrics.NewPrometheusRecorder(opts.Registry)
	}

	s := &Server{
		opts:       opts,
		configFile: configFile,
		baseURL:    "http://" + ln.Addr().String(),
		store:      output.NewMemoryStore(),
		hub:        NewLiveReloadHub(recorder),
		recorder:   recorder,
		status:     &buildStatus{},
		listener:   ln,
	}
	st, err := s.newSite()
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	s.site = st
	return s, nil
}

// URL returns the address browsers should open.
func (s *Server) URL() string { return s.baseURL + "/" }

// Store returns the in-memory output.
func (s *Server) Store() *output.MemoryStore { return s.store }

func (s *Server) newSite() (*site.Site, error) {
	cfg, err := config.Load(s.opts.Root, s.configFile, config.ModeServe)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = s.baseURL
	return site.New(cfg,
		site.WithMemoryStore(s.store),
		site.WithLiveReload(true),
		site.WithRecorder(s.recorder),
		site.WithIncludeDrafts(s.opts.IncludeDrafts),
	)
}

// Run builds the site, serves it and rebuilds on change until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.fullBuild(ctx, s.site)

	var metricsHandler http.Handler
	if s.opts.Registry != nil {
		metricsHandler = metrics.HTTPHandler(s.opts.Registry)
	}
	httpServer := &http.Server{
		Handler:           NewHandler(s.store, s.site.Config().Paths.Output, s.hub, metricsHandler, s.status),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	slog.Info("Preview server listening", logfields.URL(s.URL()))

	watcher, err := setupFileWatcher(watchRoots(s.site.Config(), s.configFile))
	if err != nil {
		_ = httpServer.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()

	changes := newChangeSet()
	defer changes.stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes.ready:
				if paths := changes.drain(); len(paths) > 0 {
					s.rebuild(ctx, paths)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.shutdown(httpServer)
			<-workerDone
			return nil
		case err := <-serveErr:
			s.hub.Shutdown()
			return foundation.RuntimeError("preview server stopped").WithCause(err).Build()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, ev, changes)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (s *Server) shutdown(httpServer *http.Server) {
	slog.Info("Shutting down preview server")
	s.hub.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}
}

func (s *Server) fullBuild(ctx context.Context, st *site.Site) bool {
	if err := st.Load(ctx); err != nil {
		s.fail(err)
		return false
	}
	if _, err := st.Build(ctx); err != nil {
		s.fail(err)
		return false
	}
	s.status.setSuccess()
	return true
}

func (s *Server) fail(err error) {
	slog.Error("Rebuild failed", logfields.Error(err))
	s.status.setError(err)
}

// rebuild applies the cheapest strategy that covers paths and tells
// browsers to reload.
func (s *Server) rebuild(ctx context.Context, paths []string) {
	plan := planRebuild(paths, s.site.Config(), s.configFile)
	if plan.kind == rebuildNone {
		return
	}
	start := time.Now()
	slog.Info("Change detected; rebuilding", slog.String("strategy", plan.kind.String()), logfields.Count(len(paths)))

	ok := s.apply(ctx, plan)
	if ctx.Err() != nil {
		return
	}
	if ok {
		s.status.setSuccess()
		slog.Info("Rebuild finished", logfields.Duration(time.Since(start)))
		s.hub.Broadcast(uuid.NewString())
		return
	}
	s.hub.Broadcast("error-" + uuid.NewString())
}

func (s *Server) apply(ctx context.Context, plan rebuildPlan) bool {
	var err error
	switch plan.kind {
	case rebuildPages:
		for _, doc := range plan.documents {
			if err = s.site.AddAndRenderPage(ctx, doc); err != nil {
				break
			}
		}
	case rebuildRender:
		_, err = s.site.Build(ctx)
	case rebuildTemplates:
		err = s.site.ReloadTemplates(ctx)
	case rebuildContent:
		return s.fullBuild(ctx, s.site)
	case rebuildConfig:
		st, newErr := s.newSite()
		if newErr != nil {
			err = newErr
			break
		}
		s.site = st
		return s.fullBuild(ctx, st)
	}
	if err != nil {
		s.fail(err)
		return false
	}
	return true
}
