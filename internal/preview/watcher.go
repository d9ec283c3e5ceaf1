package preview

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// debounceWindow is how long the watcher waits for a burst of events to
// settle before asking for a rebuild.
const debounceWindow = 300 * time.Millisecond

// rebuildKind orders the rebuild strategies from cheapest to most thorough.
// A batch of changes takes the strongest kind any of its paths needs.
type rebuildKind int

const (
	rebuildNone rebuildKind = iota
	// rebuildPages re-renders the changed documents only.
	rebuildPages
	// rebuildRender re-runs the render stages on the current library.
	rebuildRender
	// rebuildTemplates reparses templates and re-renders.
	rebuildTemplates
	// rebuildContent reloads the whole content tree.
	rebuildContent
	// rebuildConfig re-reads the configuration and starts a fresh site.
	rebuildConfig
)

func (k rebuildKind) String() string {
	switch k {
	case rebuildPages:
		return "pages"
	case rebuildRender:
		return "render"
	case rebuildTemplates:
		return "templates"
	case rebuildContent:
		return "content"
	case rebuildConfig:
		return "config"
	default:
		return "none"
	}
}

// rebuildPlan is the work a batch of changed paths requires.
type rebuildPlan struct {
	kind rebuildKind
	// documents are the markdown files to replace on the pages path.
	documents []string
}

// planRebuild classifies changed paths against the site layout.
func planRebuild(paths []string, cfg *config.Config, configFile string) rebuildPlan {
	plan := rebuildPlan{}
	raise := func(k rebuildKind) {
		if k > plan.kind {
			plan.kind = k
		}
	}

	themeDir := cfg.ThemeDir()
	for _, p := range paths {
		switch {
		case p == configFile:
			raise(rebuildConfig)
		case themeDir != "" && filepath.Base(p) == "theme.yaml" && within(themeDir, p):
			raise(rebuildConfig)
		case within(cfg.Paths.Content, p):
			fi, err := os.Stat(p)
			if err != nil || fi.IsDir() {
				raise(rebuildContent)
				continue
			}
			if !strings.EqualFold(filepath.Ext(p), ".md") {
				// Assets are copied alongside their owner on a full render.
				raise(rebuildRender)
				continue
			}
			raise(rebuildPages)
			plan.documents = append(plan.documents, p)
		case within(cfg.Paths.Templates, p),
			themeDir != "" && within(filepath.Join(themeDir, "templates"), p):
			raise(rebuildTemplates)
		default:
			raise(rebuildRender)
		}
	}
	if plan.kind != rebuildPages {
		plan.documents = nil
	}
	sort.Strings(plan.documents)
	return plan
}

func within(dir, p string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// watchRoots lists the directories and files the preview watches. Missing
// ones are skipped.
func watchRoots(cfg *config.Config, configFile string) []string {
	roots := []string{cfg.Paths.Content, cfg.Paths.Templates, cfg.Paths.Static, cfg.Paths.Sass}
	if theme := cfg.ThemeDir(); theme != "" {
		roots = append(roots, theme)
	}
	roots = append(roots, configFile)
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, err := os.Stat(r); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// setupFileWatcher creates a watcher over roots, recursing into directories.
func setupFileWatcher(roots []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryFileSystem, "create file watcher").Build()
	}
	for _, root := range roots {
		fi, err := os.Stat(root)
		if err != nil {
			continue
		}
		if !fi.IsDir() {
			if err := watcher.Add(root); err != nil {
				slog.Warn("Watch add failed", logfields.Path(root), logfields.Error(err))
			}
			continue
		}
		addDirsRecursive(watcher, root)
	}
	return watcher, nil
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent reports events that never trigger a rebuild: hidden
// files and editor swap or lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913":
		return true
	}
	return false
}

// changeSet collects changed paths between debounced rebuilds.
type changeSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
	timer *time.Timer
	ready chan struct{}
}

func newChangeSet() *changeSet {
	return &changeSet{paths: make(map[string]struct{}), ready: make(chan struct{}, 1)}
}

// add records p and restarts the debounce timer.
func (c *changeSet) add(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[norm.NFC.String(p)] = struct{}{}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(debounceWindow, c.signal)
}

func (c *changeSet) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// drain returns and clears the collected paths.
func (c *changeSet) drain() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.paths))
	for p := range c.paths {
		out = append(out, p)
	}
	c.paths = make(map[string]struct{})
	sort.Strings(out)
	return out
}

func (c *changeSet) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}

// handleFileEvent records a relevant event and starts watching new
// directories.
func handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, changes *changeSet) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	changes.add(ev.Name)
}
