package site

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/linkcheck"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
)

// Load reads the whole content tree into a fresh library, populates it,
// renders markdown and validates internal links. In check mode external
// links are checked as well.
func (s *Site) Load(ctx context.Context) error {
	start := time.Now()
	paths, err := s.contentFiles()
	if err != nil {
		return err
	}

	contentDir := s.cfg.Paths.Content
	docs, err := parallel.Map(ctx, s.cfg.Workers, paths, func(_ context.Context, path string) (content.Document, error) {
		return content.ParseFile(contentDir, path, s.cfg)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	lib := library.New(s.cfg)
	for _, doc := range docs {
		if doc.IsDraft() && !s.includeDrafts {
			continue
		}
		lib.Insert(doc)
	}
	if err := s.createDefaultIndexSections(lib); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lib = lib
	if err := s.populate(); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.renderMarkdown(ctx, s.lib.Pages(), s.lib.Sections())
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.checkLinks(ctx); err != nil {
		return err
	}

	pages, sections := s.librarySize()
	s.recorder.SetLibrarySize(pages, sections)
	slog.Info("Site loaded",
		slog.Int("pages", pages),
		slog.Int("sections", sections),
		logfields.Duration(time.Since(start)))
	return nil
}

// contentFiles lists markdown files below the content directory, skipping
// hidden entries and ignored_content matches.
func (s *Site) contentFiles() ([]string, error) {
	root := s.cfg.Paths.Content
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if s.cfg.IsIgnored(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Content directory does not exist", logfields.Path(root))
		return nil, nil
	}
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryFileSystem, "walk content directory").
			WithContext("path", root).Fatal().Build()
	}
	return out, nil
}

// createDefaultIndexSections makes sure every language has a root section.
// An explicit root that opts out of search while search is enabled for its
// language is rejected; by default only the default language is checked.
func (s *Site) createDefaultIndexSections(lib *library.Library) error {
	searchable := make(map[string]bool)
	for _, lang := range s.cfg.SearchLanguages() {
		searchable[lang] = true
	}
	for _, lang := range s.cfg.LanguageCodes() {
		path := content.SectionIndexPath(s.cfg.Paths.Content, lang, s.cfg)
		if existing, ok := lib.Section(path); ok {
			checked := lang == s.cfg.DefaultLanguage || s.cfg.SearchCheckAllLanguages
			if checked && searchable[lang] && !existing.Meta.InSearchIndex {
				return foundation.ConfigError("search is enabled in the configuration but disabled on the root section: " +
					"either turn off search in the configuration or remove in_search_index from the section front matter").
					WithContext("path", path).
					WithContext("lang", lang).
					UserAction().Build()
			}
			continue
		}
		lib.InsertSection(content.NewDefaultSection(s.cfg.Paths.Content, lang, s.cfg))
	}
	return nil
}

// populate runs the collision check and both population passes. The
// caller holds the write lock.
func (s *Site) populate() error {
	if err := library.CollisionError(s.lib.DetectCollisions()); err != nil {
		return err
	}
	if err := s.lib.PopulateTaxonomies(); err != nil {
		return err
	}
	s.lib.PopulateSections()
	return nil
}

// renderMarkdown converts pages and sections as two independent parallel
// batches. The caller holds the write lock; each worker only touches its
// own document.
func (s *Site) renderMarkdown(ctx context.Context, pages []*content.Page, sections []*content.Section) error {
	permalinks := s.lib.Permalinks()
	if err := parallel.ForEach(ctx, s.cfg.Workers, pages, func(ctx context.Context, p *content.Page) error {
		out, err := s.md.Render(ctx, p.RawContent, markdown.RenderContext{
			Permalinks:   permalinks,
			InsertAnchor: s.FindParentSectionInsertAnchor(p.File.Parent, p.Lang),
			SourcePath:   p.File.Path,
			Permalink:    p.Permalink,
		})
		if err != nil {
			return err
		}
		p.Content, p.Summary, p.TOC = out.HTML, out.Summary, out.TOC
		p.WordCount, p.ReadingTime = out.WordCount, out.ReadingTime
		p.InternalLinks = out.InternalLinks
		return nil
	}); err != nil {
		return err
	}

	return parallel.ForEach(ctx, s.cfg.Workers, sections, func(ctx context.Context, sec *content.Section) error {
		out, err := s.md.Render(ctx, sec.RawContent, markdown.RenderContext{
			Permalinks:   permalinks,
			InsertAnchor: sec.Meta.InsertAnchorLinks,
			SourcePath:   sec.File.Path,
			Permalink:    sec.Permalink,
		})
		if err != nil {
			return err
		}
		sec.Content, sec.TOC = out.HTML, out.TOC
		sec.WordCount, sec.ReadingTime = out.WordCount, out.ReadingTime
		sec.InternalLinks = out.InternalLinks
		return nil
	})
}

// FindParentSectionInsertAnchor returns the anchor policy of the section
// owning parentDir in lang, or none when there is no such section. The
// caller holds the library lock.
func (s *Site) FindParentSectionInsertAnchor(parentDir, lang string) config.InsertAnchor {
	return s.lib.InsertAnchorFor(parentDir, lang)
}

func (s *Site) checkLinks(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := linkcheck.Error(linkcheck.CheckInternal(s.lib), false); err != nil {
		return err
	}
	if s.cfg.Mode != config.ModeCheck || !s.cfg.LinkCheck.CheckExternal {
		return nil
	}
	diags, err := s.checker.CheckExternal(ctx, s.lib)
	if err != nil {
		return err
	}
	return linkcheck.Error(diags, true)
}

func (s *Site) librarySize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lib.Len()
}
