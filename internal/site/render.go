package site

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/feed"
	"git.home.luguber.info/inful/sitebuilder/internal/fsutil"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// renderPage writes p and copies its bundle assets next to it. Like every
// render function it expects the caller to hold the read lock.
func (s *Site) renderPage(p *content.Page) error {
	html, err := s.tpl.Render(s.pageTemplate(p), s.pageData(p))
	if err != nil {
		return err
	}
	dir, err := s.writer.Write(p.OutputComponents(), output.IndexFile, html, len(p.Assets) > 0)
	if err != nil {
		return err
	}
	for _, asset := range p.Assets {
		rel, err := filepath.Rel(p.File.BundleDir, asset)
		if err != nil {
			rel = filepath.Base(asset)
		}
		if err := fsutil.CopyFileIfNeeded(asset, filepath.Join(dir, rel), false); err != nil {
			return err
		}
	}
	s.recorder.AddRendered("page", 1)
	return nil
}

// ownedPages returns the pages a section renders: its direct children. Pages
// a transparent subsection hands up are rendered by that subsection.
func (s *Site) ownedPages(sec *content.Section) []*content.Page {
	var out []*content.Page
	for _, p := range s.lib.PagesFor(append(append([]string{}, sec.Pages...), sec.IgnoredPages...)) {
		if parent, ok := s.lib.ParentSection(p); ok && parent == sec {
			out = append(out, p)
		}
	}
	return out
}

func (s *Site) renderSection(ctx context.Context, sec *content.Section, renderPages bool) error {
	components := sec.OutputComponents()

	if sec.Meta.GenerateFeed {
		pages := s.lib.PagesFor(append(append([]string{}, sec.Pages...), sec.IgnoredPages...))
		if err := s.renderFeed(pages, sec.Lang, components, feed.SectionFeed{Section: sec}); err != nil {
			return err
		}
	}

	if len(sec.Assets) > 0 {
		dir := filepath.Join(append([]string{s.writer.Root()}, components...)...)
		for _, asset := range sec.Assets {
			if err := fsutil.CopyFileIfNeeded(asset, filepath.Join(dir, filepath.Base(asset)), false); err != nil {
				return err
			}
		}
	}

	if renderPages {
		if err := parallel.ForEach(ctx, s.cfg.Workers, s.ownedPages(sec), func(_ context.Context, p *content.Page) error {
			return s.renderPage(p)
		}); err != nil {
			return err
		}
	}

	if !sec.Meta.Render {
		return nil
	}
	defer s.recorder.AddRendered("section", 1)

	if sec.Meta.RedirectTo != "" {
		target := sec.Meta.RedirectTo
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			target = s.cfg.MakePermalink(target)
		}
		_, err := s.writer.Write(components, output.IndexFile, templates.RenderRedirect(target), true)
		return err
	}

	if sec.Meta.IsPaginated() {
		return s.renderPaginated(ctx, library.NewSectionPaginator(s.cfg, sec), []string{sectionTemplate(sec)}, s.sectionData(sec))
	}

	html, err := s.tpl.Render(sectionTemplate(sec), s.sectionData(sec))
	if err != nil {
		return err
	}
	_, err = s.writer.Write(components, output.IndexFile, html, true)
	return err
}

// renderPaginated writes every pager. Pager 1 lives at the root path and
// its numbered path redirects there; later pagers only exist numbered.
func (s *Site) renderPaginated(ctx context.Context, p *library.Paginator, names []string, base templateData) error {
	return parallel.ForEach(ctx, s.cfg.Workers, p.Pagers, func(_ context.Context, pager library.Pager) error {
		data := maps.Clone(base)
		data["paginator"] = s.viewPager(p, pager)
		data["current_url"] = pager.Permalink
		html, err := s.tpl.RenderFirst(names, data)
		if err != nil {
			return err
		}
		if pager.Index > 1 {
			_, err = s.writer.Write(p.PagerComponents(pager.Index), output.IndexFile, html, false)
			return err
		}
		if _, err := s.writer.Write(p.Components(), output.IndexFile, html, false); err != nil {
			return err
		}
		_, err = s.writer.Write(p.PagerComponents(1), output.IndexFile, templates.RenderRedirect(p.Permalink), false)
		return err
	})
}

func (s *Site) renderSections(ctx context.Context) error {
	return parallel.ForEach(ctx, s.cfg.Workers, s.lib.Sections(), func(ctx context.Context, sec *content.Section) error {
		return s.renderSection(ctx, sec, true)
	})
}

func (s *Site) renderOrphans(ctx context.Context) error {
	orphans := s.lib.OrphanPages()
	if len(orphans) > 0 {
		slog.Debug("Rendering orphan pages", logfields.Count(len(orphans)))
	}
	return parallel.ForEach(ctx, s.cfg.Workers, orphans, func(_ context.Context, p *content.Page) error {
		return s.renderPage(p)
	})
}

func (s *Site) renderAliases() error {
	for _, p := range s.lib.Pages() {
		for _, alias := range p.Meta.Aliases {
			if err := s.renderAlias(alias, p.Permalink); err != nil {
				return err
			}
		}
	}
	for _, sec := range s.lib.Sections() {
		for _, alias := range sec.Meta.Aliases {
			if err := s.renderAlias(alias, sec.Permalink); err != nil {
				return err
			}
		}
	}
	return nil
}

// aliasTarget maps an alias to its output location. An alias whose
// last component ends in .html names the file itself; otherwise it is a
// directory.
func aliasTarget(alias string) ([]string, string) {
	var components []string
	for _, c := range strings.Split(strings.Trim(alias, "/"), "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	if n := len(components); n > 0 && strings.HasSuffix(components[n-1], ".html") {
		return components[:n-1], components[n-1]
	}
	return components, output.IndexFile
}

func (s *Site) renderAlias(alias, permalink string) error {
	components, filename := aliasTarget(alias)
	_, err := s.writer.Write(components, filename, templates.RenderRedirect(permalink), true)
	return err
}

func (s *Site) renderFeed(pages []*content.Page, lang string, components []string, fc feed.Context) error {
	doc, ok, err := feed.Render(s.cfg, pages, lang, components, fc)
	if err != nil || !ok {
		return err
	}
	_, err = s.writer.Write(components, s.cfg.FeedFilename, doc, true)
	return err
}

// renderFeeds writes the site feed and the feeds of languages that opt in.
// On a multilingual site the root feed only carries default-language pages.
func (s *Site) renderFeeds() error {
	if s.cfg.GenerateFeed {
		pages := s.lib.Pages()
		if s.cfg.IsMultilingual() {
			pages = s.lib.PagesByLang(s.cfg.DefaultLanguage)
		}
		if err := s.renderFeed(pages, s.cfg.DefaultLanguage, nil, feed.SiteFeed{}); err != nil {
			return err
		}
	}
	for _, lang := range s.cfg.FeedLanguages() {
		if err := s.renderFeed(s.lib.PagesByLang(lang), lang, []string{lang}, feed.SiteFeed{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Site) renderSystemPages() error {
	notFound, err := s.tpl.Render("404.html", s.baseData(s.cfg.DefaultLanguage, "Page not found", ""))
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(nil, "404.html", notFound, false); err != nil {
		return err
	}
	robots, err := s.tpl.Render("robots.txt", s.baseData(s.cfg.DefaultLanguage, "", ""))
	if err != nil {
		return err
	}
	_, err = s.writer.Write(nil, "robots.txt", robots, false)
	return err
}

func (s *Site) renderTaxonomies(ctx context.Context) error {
	taxonomies := s.lib.Taxonomies()
	for i := range taxonomies {
		if err := s.renderTaxonomy(ctx, &taxonomies[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Site) renderTaxonomy(ctx context.Context, t *library.Taxonomy) error {
	if len(t.Items) == 0 {
		return nil
	}
	html, err := s.tpl.RenderFirst([]string{t.Slug + "/list.html", "taxonomy_list.html"}, s.taxonomyListData(t))
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(t.Components(), output.IndexFile, html, true); err != nil {
		return err
	}

	single := []string{t.Slug + "/single.html", "taxonomy_single.html"}
	terms := make([]*library.TaxonomyTerm, 0, len(t.Items))
	for i := range t.Items {
		terms = append(terms, &t.Items[i])
	}
	err = parallel.ForEach(ctx, s.cfg.Workers, terms, func(ctx context.Context, term *library.TaxonomyTerm) error {
		if t.Kind.Feed {
			if err := s.renderFeed(s.lib.PagesFor(term.Pages), t.Kind.Lang, term.Components(), feed.TermFeed{Taxonomy: t, Term: term}); err != nil {
				return err
			}
		}
		if t.Kind.IsPaginated() {
			return s.renderPaginated(ctx, library.NewTaxonomyPaginator(s.cfg, t, term), single, s.termData(t, term))
		}
		html, err := s.tpl.RenderFirst(single, s.termData(t, term))
		if err != nil {
			return err
		}
		_, err = s.writer.Write(term.Components(), output.IndexFile, html, true)
		return err
	})
	if err == nil {
		s.recorder.AddRendered("taxonomy_term", len(terms))
	}
	return err
}
