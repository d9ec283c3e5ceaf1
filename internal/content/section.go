package content

// Section is a content document that owns child pages and subsections.
type Section struct {
	File FileInfo
	Lang string
	Meta SectionFrontMatter

	RawContent string
	Content    string
	TOC        []Heading

	Path      string
	Permalink string
	Assets    []string

	// Pages holds child page identities in the section's sort order.
	Pages []string
	// IgnoredPages holds children that lack the sort key.
	IgnoredPages []string
	Subsections  []string
	Ancestors    []string

	WordCount     int
	ReadingTime   int
	InternalLinks []InternalLink
}

// IsIndex reports whether the section is a language root.
func (s *Section) IsIndex() bool {
	return len(s.File.Components) == 0
}

// Title returns the front matter title.
func (s *Section) Title() string {
	return s.Meta.Title
}

// HasAnchor reports whether id is a heading anchor of the rendered section.
func (s *Section) HasAnchor(id string) bool {
	return hasAnchor(s.TOC, id)
}

// OutputComponents returns the directory components the section renders into.
func (s *Section) OutputComponents() []string {
	return pathComponents(s.Path)
}

// ShouldRenderListing reports whether the section produces its own index document.
func (s *Section) ShouldRenderListing() bool {
	return s.Meta.Render
}

// ResetChildren clears derived relationship state before repopulation.
func (s *Section) ResetChildren() {
	s.Pages = nil
	s.IgnoredPages = nil
	s.Subsections = nil
	s.Ancestors = nil
}
