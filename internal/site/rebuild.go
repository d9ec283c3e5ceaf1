package site

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/linkcheck"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
)

// AddAndRenderPage re-parses the page at path, replaces it in the library,
// repopulates and re-renders it together with its ancestor listings and
// the taxonomies. A page that became a draft is removed instead, see
// removePage.
func (s *Site) AddAndRenderPage(ctx context.Context, path string) error {
	doc, err := content.ParseFile(s.cfg.Paths.Content, path, s.cfg)
	if err != nil {
		return err
	}
	if doc.Kind != content.KindPage {
		return s.AddAndRenderSection(ctx, path)
	}
	p := doc.Page

	if p.Meta.Draft && !s.includeDrafts {
		return s.removePage(ctx, path)
	}

	s.mu.Lock()
	s.lib.InsertPage(p)
	if err := s.populate(); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.renderMarkdown(ctx, []*content.Page{p}, nil)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := linkcheck.Error(linkcheck.CheckInternal(s.lib), false); err != nil {
		return err
	}
	if err := s.renderPage(p); err != nil {
		return err
	}
	for _, alias := range p.Meta.Aliases {
		if err := s.renderAlias(alias, p.Permalink); err != nil {
			return err
		}
	}
	for _, id := range p.Ancestors {
		if sec, ok := s.lib.Section(id); ok {
			if err := s.renderSection(ctx, sec, false); err != nil {
				return err
			}
		}
	}
	slog.Debug("Page re-rendered", logfields.Path(path), logfields.Permalink(p.Permalink))
	return s.renderTaxonomies(ctx)
}

// removePage evicts the page at path, drops its artifacts and the term
// listings it was the last member of, and re-renders the listings that
// linked to it.
func (s *Site) removePage(ctx context.Context, path string) error {
	s.mu.Lock()
	pagers := s.ancestorPagerCounts(path)
	old := s.lib.RemovePage(path)
	if old == nil {
		s.mu.Unlock()
		return nil
	}
	// RemovePage already dropped the page from every term; a term left
	// empty disappears on populate and would otherwise keep being served.
	var emptied []library.TaxonomyTerm
	for _, tax := range s.lib.Taxonomies() {
		for _, term := range tax.Items {
			if len(term.Pages) == 0 {
				emptied = append(emptied, term)
			}
		}
	}
	err := s.populate()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.writer.Delete(old.OutputComponents(), output.IndexFile); err != nil {
		return err
	}
	for _, alias := range old.Meta.Aliases {
		components, filename := aliasTarget(alias)
		if err := s.writer.Delete(components, filename); err != nil {
			return err
		}
	}
	for _, term := range emptied {
		if err := s.writer.Delete(term.Components(), output.IndexFile); err != nil {
			return err
		}
		if err := s.writer.Delete(term.Components(), s.cfg.FeedFilename); err != nil {
			return err
		}
	}
	for _, tax := range s.lib.Taxonomies() {
		if len(tax.Items) == 0 {
			if err := s.writer.Delete(tax.Components(), output.IndexFile); err != nil {
				return err
			}
		}
	}
	for _, id := range old.Ancestors {
		sec, ok := s.lib.Section(id)
		if !ok {
			continue
		}
		if err := s.renderSection(ctx, sec, false); err != nil {
			return err
		}
		// Drop the trailing pagers a shorter listing no longer produces.
		if before, ok := pagers[id]; ok {
			pg := library.NewSectionPaginator(s.cfg, sec)
			for i := len(pg.Pagers) + 1; i <= before; i++ {
				if err := s.writer.Delete(pg.PagerComponents(i), output.IndexFile); err != nil {
					return err
				}
			}
		}
	}
	slog.Debug("Draft page removed", logfields.Path(path), logfields.Permalink(old.Permalink))
	if err := s.renderFeeds(); err != nil {
		return err
	}
	return s.renderTaxonomies(ctx)
}

// ancestorPagerCounts returns the pager count of every paginated section
// above the page at path. The caller holds the lock.
func (s *Site) ancestorPagerCounts(path string) map[string]int {
	counts := make(map[string]int)
	p, ok := s.lib.Page(path)
	if !ok {
		return counts
	}
	for _, id := range p.Ancestors {
		if sec, ok := s.lib.Section(id); ok && sec.Meta.IsPaginated() {
			counts[id] = len(library.NewSectionPaginator(s.cfg, sec).Pagers)
		}
	}
	return counts
}

// AddAndRenderSection re-parses the section at path, replaces it and
// re-renders it with its pages.
func (s *Site) AddAndRenderSection(ctx context.Context, path string) error {
	doc, err := content.ParseFile(s.cfg.Paths.Content, path, s.cfg)
	if err != nil {
		return err
	}
	if doc.Kind != content.KindSection {
		return s.AddAndRenderPage(ctx, path)
	}
	sec := doc.Section

	s.mu.Lock()
	if sec.Meta.Draft && !s.includeDrafts {
		s.lib.RemoveSection(path)
		err = s.populate()
		s.mu.Unlock()
		return err
	}
	s.lib.InsertSection(sec)
	if err := s.populate(); err != nil {
		s.mu.Unlock()
		return err
	}
	// The anchor policy of the owned pages may have changed with the section.
	err = s.renderMarkdown(ctx, s.ownedPages(sec), []*content.Section{sec})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := linkcheck.Error(linkcheck.CheckInternal(s.lib), false); err != nil {
		return err
	}
	for _, alias := range sec.Meta.Aliases {
		if err := s.renderAlias(alias, sec.Permalink); err != nil {
			return err
		}
	}
	slog.Debug("Section re-rendered", logfields.Path(path), logfields.Section(sec.Permalink))
	return s.renderSection(ctx, sec, true)
}

// ReloadTemplates re-parses every template and renders the site again
// without re-reading content.
func (s *Site) ReloadTemplates(ctx context.Context) error {
	if err := s.tpl.Reload(); err != nil {
		return err
	}
	_, err := s.Build(ctx)
	return err
}
