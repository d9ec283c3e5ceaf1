package content

import (
	"strings"
	"time"
)

// Heading is one entry of a rendered document's table of contents.
type Heading struct {
	Level     int       `json:"level"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Permalink string    `json:"permalink"`
	Children  []Heading `json:"children,omitempty"`
}

// InternalLink is a resolved `@/` reference found while rendering.
type InternalLink struct {
	Target string
	Anchor string
}

// Page is a leaf content document.
type Page struct {
	File FileInfo
	Lang string
	Meta PageFrontMatter

	RawContent string
	Content    string
	Summary    string
	TOC        []Heading

	Slug      string
	Path      string
	Permalink string
	Assets    []string

	Ancestors    []string
	Translations []string

	WordCount   int
	ReadingTime int

	InternalLinks []InternalLink
}

// Date returns the page date, or the zero time when unset.
func (p *Page) Date() time.Time {
	if p.Meta.Date == nil {
		return time.Time{}
	}
	return *p.Meta.Date
}

// LastModified returns updated, falling back to date.
func (p *Page) LastModified() time.Time {
	if p.Meta.Updated != nil {
		return *p.Meta.Updated
	}
	return p.Date()
}

// Title returns the front matter title.
func (p *Page) Title() string {
	return p.Meta.Title
}

// HasAnchor reports whether id is a heading anchor of the rendered page.
func (p *Page) HasAnchor(id string) bool {
	return hasAnchor(p.TOC, id)
}

func hasAnchor(toc []Heading, id string) bool {
	for _, h := range toc {
		if h.ID == id || hasAnchor(h.Children, id) {
			return true
		}
	}
	return false
}

// OutputComponents returns the directory components the page renders into.
func (p *Page) OutputComponents() []string {
	return pathComponents(p.Path)
}

func pathComponents(urlPath string) []string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
