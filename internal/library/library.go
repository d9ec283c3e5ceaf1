// Package library holds the in-memory document graph of a site: every page
// and section keyed by source path, the indices derived from them, and the
// taxonomies computed from page front matter.
//
// A Library is not safe for concurrent mutation. The owning site guards it
// with a read/write lock held for whole phases.
package library

import (
	"slices"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Library is the arena of all documents of one build.
type Library struct {
	cfg *config.Config

	pages    map[string]*content.Page
	sections map[string]*content.Section

	// permalinks maps content-relative source paths to permalinks and backs
	// `@/` cross-reference resolution.
	permalinks map[string]string
	// byPermalink maps permalinks to document identities.
	byPermalink map[string]string

	taxonomies []Taxonomy
}

// New returns an empty library for cfg.
func New(cfg *config.Config) *Library {
	return &Library{
		cfg:         cfg,
		pages:       make(map[string]*content.Page),
		sections:    make(map[string]*content.Section),
		permalinks:  make(map[string]string),
		byPermalink: make(map[string]string),
	}
}

// Insert adds a parsed document of either kind.
func (l *Library) Insert(doc content.Document) {
	if doc.Kind == content.KindSection {
		l.InsertSection(doc.Section)
		return
	}
	l.InsertPage(doc.Page)
}

// InsertPage inserts p, replacing any page with the same identity.
func (l *Library) InsertPage(p *content.Page) {
	if _, ok := l.pages[p.File.Path]; ok {
		l.RemovePage(p.File.Path)
	}
	l.pages[p.File.Path] = p
	l.permalinks[p.File.Relative] = p.Permalink
	l.byPermalink[p.Permalink] = p.File.Path
}

// InsertSection inserts s, replacing any section with the same identity.
// Derived child lists of a replaced section carry over until the next
// population pass recomputes them.
func (l *Library) InsertSection(s *content.Section) {
	if old, ok := l.sections[s.File.Path]; ok {
		s.Pages, s.IgnoredPages = old.Pages, old.IgnoredPages
		s.Subsections, s.Ancestors = old.Subsections, old.Ancestors
		l.evictSection(old)
	}
	l.sections[s.File.Path] = s
	l.permalinks[s.File.Relative] = s.Permalink
	l.byPermalink[s.Permalink] = s.File.Path
}

// RemovePage evicts a page and every derived entry referencing it.
func (l *Library) RemovePage(path string) *content.Page {
	p, ok := l.pages[path]
	if !ok {
		return nil
	}
	delete(l.pages, path)
	if l.permalinks[p.File.Relative] == p.Permalink {
		delete(l.permalinks, p.File.Relative)
	}
	if l.byPermalink[p.Permalink] == path {
		delete(l.byPermalink, p.Permalink)
	}
	for _, s := range l.sections {
		s.Pages = slices.DeleteFunc(s.Pages, func(id string) bool { return id == path })
		s.IgnoredPages = slices.DeleteFunc(s.IgnoredPages, func(id string) bool { return id == path })
	}
	for _, other := range l.pages {
		other.Translations = slices.DeleteFunc(other.Translations, func(id string) bool { return id == path })
	}
	for i := range l.taxonomies {
		for j := range l.taxonomies[i].Items {
			term := &l.taxonomies[i].Items[j]
			term.Pages = slices.DeleteFunc(term.Pages, func(id string) bool { return id == path })
		}
	}
	return p
}

// RemoveSection evicts a section and every derived entry referencing it.
func (l *Library) RemoveSection(path string) *content.Section {
	s, ok := l.sections[path]
	if !ok {
		return nil
	}
	l.evictSection(s)
	return s
}

func (l *Library) evictSection(s *content.Section) {
	path := s.File.Path
	delete(l.sections, path)
	if l.permalinks[s.File.Relative] == s.Permalink {
		delete(l.permalinks, s.File.Relative)
	}
	if l.byPermalink[s.Permalink] == path {
		delete(l.byPermalink, s.Permalink)
	}
	for _, other := range l.sections {
		other.Subsections = slices.DeleteFunc(other.Subsections, func(id string) bool { return id == path })
		other.Ancestors = slices.DeleteFunc(other.Ancestors, func(id string) bool { return id == path })
	}
	for _, p := range l.pages {
		p.Ancestors = slices.DeleteFunc(p.Ancestors, func(id string) bool { return id == path })
	}
}

// Page looks up a page by identity.
func (l *Library) Page(path string) (*content.Page, bool) {
	p, ok := l.pages[path]
	return p, ok
}

// Section looks up a section by identity.
func (l *Library) Section(path string) (*content.Section, bool) {
	s, ok := l.sections[path]
	return s, ok
}

// PageByPermalink looks up a page by its permalink.
func (l *Library) PageByPermalink(permalink string) (*content.Page, bool) {
	id, ok := l.byPermalink[permalink]
	if !ok {
		return nil, false
	}
	return l.Page(id)
}

// SectionByPermalink looks up a section by its permalink.
func (l *Library) SectionByPermalink(permalink string) (*content.Section, bool) {
	id, ok := l.byPermalink[permalink]
	if !ok {
		return nil, false
	}
	return l.Section(id)
}

// PageByRelative looks up a page by its content-relative source path.
func (l *Library) PageByRelative(rel string) (*content.Page, bool) {
	permalink, ok := l.permalinks[rel]
	if !ok {
		return nil, false
	}
	return l.PageByPermalink(permalink)
}

// SectionByRelative looks up a section by its content-relative source path.
func (l *Library) SectionByRelative(rel string) (*content.Section, bool) {
	permalink, ok := l.permalinks[rel]
	if !ok {
		return nil, false
	}
	return l.SectionByPermalink(permalink)
}

// ChildrenOf returns the pages and subsections owned by the section at path.
func (l *Library) ChildrenOf(path string) ([]*content.Page, []*content.Section) {
	s, ok := l.sections[path]
	if !ok {
		return nil, nil
	}
	return l.PagesFor(s.Pages), l.SectionsFor(s.Subsections)
}

// PagesFor resolves identities to pages, skipping unknown ones.
func (l *Library) PagesFor(ids []string) []*content.Page {
	out := make([]*content.Page, 0, len(ids))
	for _, id := range ids {
		if p, ok := l.pages[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SectionsFor resolves identities to sections, skipping unknown ones.
func (l *Library) SectionsFor(ids []string) []*content.Section {
	out := make([]*content.Section, 0, len(ids))
	for _, id := range ids {
		if s, ok := l.sections[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ParentSection returns the section owning p, if present.
func (l *Library) ParentSection(p *content.Page) (*content.Section, bool) {
	return l.Section(content.SectionIndexPath(p.File.Parent, p.Lang, l.cfg))
}

// OrphanPages returns pages whose parent section is absent, in path order.
func (l *Library) OrphanPages() []*content.Page {
	var out []*content.Page
	for _, p := range l.Pages() {
		if _, ok := l.ParentSection(p); !ok {
			out = append(out, p)
		}
	}
	return out
}

// InsertAnchorFor returns the anchor policy of the section owning dir in lang.
func (l *Library) InsertAnchorFor(dir, lang string) config.InsertAnchor {
	if s, ok := l.Section(content.SectionIndexPath(dir, lang, l.cfg)); ok {
		return s.Meta.InsertAnchorLinks
	}
	return config.InsertAnchorNone
}

// Permalinks returns a copy of the source path to permalink index.
func (l *Library) Permalinks() map[string]string {
	out := make(map[string]string, len(l.permalinks))
	for k, v := range l.permalinks {
		out[k] = v
	}
	return out
}

// Pages returns all pages in identity order.
func (l *Library) Pages() []*content.Page {
	out := make([]*content.Page, 0, len(l.pages))
	for _, p := range l.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File.Path < out[j].File.Path })
	return out
}

// PagesByLang returns the pages of lang in identity order.
func (l *Library) PagesByLang(lang string) []*content.Page {
	var out []*content.Page
	for _, p := range l.Pages() {
		if p.Lang == lang {
			out = append(out, p)
		}
	}
	return out
}

// Sections returns all sections in identity order.
func (l *Library) Sections() []*content.Section {
	out := make([]*content.Section, 0, len(l.sections))
	for _, s := range l.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File.Path < out[j].File.Path })
	return out
}

// Len returns the number of pages and sections.
func (l *Library) Len() (pages, sections int) {
	return len(l.pages), len(l.sections)
}

// Taxonomies returns the taxonomies computed by the last PopulateTaxonomies.
func (l *Library) Taxonomies() []Taxonomy {
	return l.taxonomies
}

// Taxonomy looks up a taxonomy by name and language.
func (l *Library) Taxonomy(name, lang string) (*Taxonomy, bool) {
	for i := range l.taxonomies {
		if l.taxonomies[i].Kind.Name == name && l.taxonomies[i].Kind.Lang == lang {
			return &l.taxonomies[i], true
		}
	}
	return nil, false
}
