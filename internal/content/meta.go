package content

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// SortBy selects how a section orders its pages.
type SortBy string

const (
	SortByNone   SortBy = "none"
	SortByDate   SortBy = "date"
	SortByWeight SortBy = "weight"
	SortByTitle  SortBy = "title"
)

// PageFrontMatter is the metadata block of a page.
type PageFrontMatter struct {
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	Date          *time.Time          `yaml:"date"`
	Updated       *time.Time          `yaml:"updated"`
	Draft         bool                `yaml:"draft"`
	Slug          string              `yaml:"slug"`
	Path          string              `yaml:"path"`
	Aliases       []string            `yaml:"aliases"`
	Taxonomies    map[string][]string `yaml:"taxonomies"`
	InSearchIndex bool                `yaml:"in_search_index"`
	Weight        *int                `yaml:"weight"`
	Template      string              `yaml:"template"`
	Extra         map[string]any      `yaml:"extra"`
}

// DefaultPageFrontMatter returns the values used for keys a page omits.
func DefaultPageFrontMatter() PageFrontMatter {
	return PageFrontMatter{InSearchIndex: true}
}

// SectionFrontMatter is the metadata block of a section.
type SectionFrontMatter struct {
	Title             string              `yaml:"title"`
	Description       string              `yaml:"description"`
	Draft             bool                `yaml:"draft"`
	SortBy            SortBy              `yaml:"sort_by"`
	Weight            int                 `yaml:"weight"`
	Template          string              `yaml:"template"`
	PageTemplate      string              `yaml:"page_template"`
	PaginateBy        int                 `yaml:"paginate_by"`
	PaginatePath      string              `yaml:"paginate_path"`
	PaginateReversed  bool                `yaml:"paginate_reversed"`
	InsertAnchorLinks config.InsertAnchor `yaml:"insert_anchor_links"`
	InSearchIndex     bool                `yaml:"in_search_index"`
	Render            bool                `yaml:"render"`
	RedirectTo        string              `yaml:"redirect_to"`
	Transparent       bool                `yaml:"transparent"`
	GenerateFeed      bool                `yaml:"generate_feed"`
	Aliases           []string            `yaml:"aliases"`
	Extra             map[string]any      `yaml:"extra"`
}

// DefaultSectionFrontMatter returns the values used for keys a section omits.
func DefaultSectionFrontMatter() SectionFrontMatter {
	return SectionFrontMatter{
		SortBy:            SortByNone,
		PaginatePath:      "page",
		InsertAnchorLinks: config.InsertAnchorNone,
		InSearchIndex:     true,
		Render:            true,
	}
}

// IsPaginated reports whether the section listing is split into pagers.
func (m SectionFrontMatter) IsPaginated() bool {
	return m.PaginateBy > 0
}
