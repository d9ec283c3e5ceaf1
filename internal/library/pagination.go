package library

import (
	"slices"
	"strconv"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// PaginationRoot names what a paginator splits.
type PaginationRoot struct {
	Section  *content.Section
	Taxonomy *Taxonomy
	Term     *TaxonomyTerm
}

// Pager is one page of a paginated listing.
type Pager struct {
	Index     int
	Path      string
	Permalink string
	Pages     []string
}

// Paginator splits an ordered page list into pagers. It is computed on
// demand and never stored in the library.
type Paginator struct {
	Root         PaginationRoot
	PaginateBy   int
	PaginatePath string
	Path         string
	Permalink    string
	AllPages     []string
	Pagers       []Pager
}

// NewSectionPaginator paginates a section's ordered pages.
func NewSectionPaginator(cfg *config.Config, s *content.Section) *Paginator {
	pages := s.Pages
	if s.Meta.PaginateReversed {
		pages = slices.Clone(pages)
		slices.Reverse(pages)
	}
	return newPaginator(cfg, PaginationRoot{Section: s}, pages, s.Meta.PaginateBy, s.Meta.PaginatePath, s.Path, s.Permalink)
}

// NewTaxonomyPaginator paginates a term's pages using its taxonomy settings.
func NewTaxonomyPaginator(cfg *config.Config, t *Taxonomy, term *TaxonomyTerm) *Paginator {
	return newPaginator(cfg, PaginationRoot{Taxonomy: t, Term: term}, term.Pages, t.Kind.PaginateBy, t.Kind.PaginatePath, term.Path, term.Permalink)
}

// newPaginator always yields at least one pager so the root listing renders
// even when it has no pages.
func newPaginator(cfg *config.Config, root PaginationRoot, pages []string, by int, paginatePath, path, permalink string) *Paginator {
	if by <= 0 {
		by = max(len(pages), 1)
	}
	p := &Paginator{
		Root:         root,
		PaginateBy:   by,
		PaginatePath: paginatePath,
		Path:         path,
		Permalink:    permalink,
		AllPages:     pages,
	}

	for start := 0; start < len(pages) || start == 0; start += by {
		end := min(start+by, len(pages))
		index := len(p.Pagers) + 1
		pager := Pager{Index: index, Pages: pages[start:end], Path: path, Permalink: permalink}
		if index > 1 {
			pager.Path = joinPath(path, paginatePath, strconv.Itoa(index))
			pager.Permalink = cfg.MakePermalink(pager.Path)
		}
		p.Pagers = append(p.Pagers, pager)
		if end == len(pages) {
			break
		}
	}
	return p
}

// Components returns the root's output directory components.
func (p *Paginator) Components() []string {
	return splitPath(p.Path)
}

// PagerComponents returns the numbered directory components of a pager.
func (p *Paginator) PagerComponents(index int) []string {
	return append(p.Components(), p.PaginatePath, strconv.Itoa(index))
}

// Previous returns the permalink of the pager before index, or "".
func (p *Paginator) Previous(index int) string {
	if index <= 1 || index > len(p.Pagers) {
		return ""
	}
	return p.Pagers[index-2].Permalink
}

// Next returns the permalink of the pager after index, or "".
func (p *Paginator) Next(index int) string {
	if index < 1 || index >= len(p.Pagers) {
		return ""
	}
	return p.Pagers[index].Permalink
}

// First returns the permalink of the first pager.
func (p *Paginator) First() string {
	return p.Pagers[0].Permalink
}

// Last returns the permalink of the last pager.
func (p *Paginator) Last() string {
	return p.Pagers[len(p.Pagers)-1].Permalink
}
