package library

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Taxonomy is one classification dimension in one language.
type Taxonomy struct {
	Kind      config.TaxonomyConfig
	Slug      string
	Path      string
	Permalink string
	Items     []TaxonomyTerm
}

// TaxonomyTerm is one value of a taxonomy with the pages declaring it.
type TaxonomyTerm struct {
	Name      string
	Slug      string
	Path      string
	Permalink string
	Pages     []string
}

// Components returns the output directory components of the taxonomy list.
func (t *Taxonomy) Components() []string {
	return splitPath(t.Path)
}

// Term looks up a term by slug.
func (t *Taxonomy) Term(slug string) (*TaxonomyTerm, bool) {
	for i := range t.Items {
		if t.Items[i].Slug == slug {
			return &t.Items[i], true
		}
	}
	return nil, false
}

// Components returns the output directory components of the term listing.
func (t *TaxonomyTerm) Components() []string {
	return splitPath(t.Path)
}

// PopulateTaxonomies recomputes every taxonomy from page front matter.
func (l *Library) PopulateTaxonomies() error {
	taxonomies, err := FindTaxonomies(l.cfg, l)
	if err != nil {
		return err
	}
	l.taxonomies = taxonomies
	return nil
}

// FindTaxonomies scans the non-draft pages of every language and groups
// their declared terms. Terms without pages are never produced; taxonomies
// without terms are kept so templates can still list them.
func FindTaxonomies(cfg *config.Config, l *Library) ([]Taxonomy, error) {
	if len(cfg.Taxonomies) == 0 {
		return nil, nil
	}

	type bucket struct {
		tax   Taxonomy
		terms map[string]*TaxonomyTerm
		pages map[string][]*content.Page
	}
	buckets := make(map[string]*bucket)
	key := func(lang, name string) string { return lang + "\x00" + name }
	for _, tc := range cfg.Taxonomies {
		slug := content.Slugify(tc.Name)
		path := joinPath(cfg.LanguagePrefix(tc.Lang), slug)
		buckets[key(tc.Lang, tc.Name)] = &bucket{
			tax:   Taxonomy{Kind: tc, Slug: slug, Path: path, Permalink: cfg.MakePermalink(path)},
			terms: make(map[string]*TaxonomyTerm),
			pages: make(map[string][]*content.Page),
		}
	}

	for _, p := range l.Pages() {
		if p.Meta.Draft {
			continue
		}
		names := make([]string, 0, len(p.Meta.Taxonomies))
		for name := range p.Meta.Taxonomies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b, ok := buckets[key(p.Lang, name)]
			if !ok {
				return nil, foundation.ContentError("page uses a taxonomy that is not configured for its language").
					WithContext("path", p.File.Path).
					WithContext("taxonomy", name).
					WithContext("lang", p.Lang).
					Build()
			}
			for _, value := range p.Meta.Taxonomies[name] {
				slug := content.Slugify(value)
				term, ok := b.terms[slug]
				if !ok {
					path := joinPath(b.tax.Path, slug)
					term = &TaxonomyTerm{Name: value, Slug: slug, Path: path, Permalink: cfg.MakePermalink(path)}
					b.terms[slug] = term
				}
				if len(b.pages[slug]) == 0 || b.pages[slug][len(b.pages[slug])-1] != p {
					b.pages[slug] = append(b.pages[slug], p)
				}
			}
		}
	}

	out := make([]Taxonomy, 0, len(buckets))
	for _, tc := range cfg.Taxonomies {
		b := buckets[key(tc.Lang, tc.Name)]
		for slug, term := range b.terms {
			sorted, ignored := content.SortPages(b.pages[slug], content.SortByDate)
			term.Pages = append(sorted, ignored...)
			if len(term.Pages) > 0 {
				b.tax.Items = append(b.tax.Items, *term)
			}
		}
		sort.Slice(b.tax.Items, func(i, j int) bool {
			a, c := strings.ToLower(b.tax.Items[i].Name), strings.ToLower(b.tax.Items[j].Name)
			if a != c {
				return a < c
			}
			return b.tax.Items[i].Slug < b.tax.Items[j].Slug
		})
		out = append(out, b.tax)
	}
	return out, nil
}

func joinPath(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/") + "/"
}

func splitPath(urlPath string) []string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
