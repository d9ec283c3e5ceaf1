package site

import (
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

// templateData is the structured context handed to templates. Keys are the
// names templates use.
type templateData map[string]any

func (s *Site) baseData(lang, title, currentURL string) templateData {
	return templateData{
		"config":      s.cfg,
		"lang":        lang,
		"title":       title,
		"current_url": currentURL,
	}
}

// taxonomyView is a taxonomy with its term pages resolved.
type taxonomyView struct {
	Kind      config.TaxonomyConfig
	Slug      string
	Permalink string
	Items     []termView
}

// termView is a taxonomy term with its pages resolved.
type termView struct {
	Name      string
	Slug      string
	Permalink string
	Pages     []*content.Page
}

func (s *Site) viewTaxonomy(t *library.Taxonomy) taxonomyView {
	v := taxonomyView{Kind: t.Kind, Slug: t.Slug, Permalink: t.Permalink}
	for i := range t.Items {
		v.Items = append(v.Items, s.viewTerm(&t.Items[i]))
	}
	return v
}

func (s *Site) viewTerm(term *library.TaxonomyTerm) termView {
	return termView{Name: term.Name, Slug: term.Slug, Permalink: term.Permalink, Pages: s.lib.PagesFor(term.Pages)}
}

// pagerView is the paginator state of one rendered pager.
type pagerView struct {
	PaginateBy   int
	NumberPagers int
	Current      int
	Permalink    string
	First        string
	Last         string
	Previous     string
	Next         string
	Pages        []*content.Page
	TotalPages   int
}

func (s *Site) viewPager(p *library.Paginator, pager library.Pager) pagerView {
	return pagerView{
		PaginateBy:   p.PaginateBy,
		NumberPagers: len(p.Pagers),
		Current:      pager.Index,
		Permalink:    pager.Permalink,
		First:        p.First(),
		Last:         p.Last(),
		Previous:     p.Previous(pager.Index),
		Next:         p.Next(pager.Index),
		Pages:        s.lib.PagesFor(pager.Pages),
		TotalPages:   len(p.AllPages),
	}
}

func (s *Site) pageData(p *content.Page) templateData {
	data := s.baseData(p.Lang, p.Title(), p.Permalink)
	data["page"] = p
	if parent, ok := s.lib.ParentSection(p); ok {
		data["section"] = parent
	}
	data["translations"] = s.lib.PagesFor(p.Translations)
	return data
}

func (s *Site) sectionData(sec *content.Section) templateData {
	data := s.baseData(sec.Lang, sec.Title(), sec.Permalink)
	data["section"] = sec
	data["pages"] = s.lib.PagesFor(append(append([]string{}, sec.Pages...), sec.IgnoredPages...))
	data["subsections"] = s.lib.SectionsFor(sec.Subsections)
	return data
}

func (s *Site) taxonomyListData(t *library.Taxonomy) templateData {
	view := s.viewTaxonomy(t)
	data := s.baseData(t.Kind.Lang, t.Kind.Name, t.Permalink)
	data["taxonomy"] = view
	data["terms"] = view.Items
	return data
}

func (s *Site) termData(t *library.Taxonomy, term *library.TaxonomyTerm) templateData {
	data := s.baseData(t.Kind.Lang, term.Name, term.Permalink)
	data["taxonomy"] = s.viewTaxonomy(t)
	data["term"] = s.viewTerm(term)
	return data
}

// pageTemplate picks the template of p: its own, else the page_template of
// the nearest ancestor declaring one, else page.html.
func (s *Site) pageTemplate(p *content.Page) string {
	if p.Meta.Template != "" {
		return p.Meta.Template
	}
	for i := len(p.Ancestors) - 1; i >= 0; i-- {
		if sec, ok := s.lib.Section(p.Ancestors[i]); ok && sec.Meta.PageTemplate != "" {
			return sec.Meta.PageTemplate
		}
	}
	return "page.html"
}

func sectionTemplate(sec *content.Section) string {
	switch {
	case sec.Meta.Template != "":
		return sec.Meta.Template
	case sec.IsIndex():
		return "index.html"
	default:
		return "section.html"
	}
}
