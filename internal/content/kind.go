package content

import "strings"

// Kind discriminates the two document entity types. It is decided once, at
// parse time, from the filename.
type Kind int

const (
	KindPage Kind = iota
	KindSection
)

func (k Kind) String() string {
	if k == KindSection {
		return "section"
	}
	return "page"
}

// SectionPrefix marks a file as the index document of its directory.
const SectionPrefix = "_index."

// KindOf classifies a source file by name.
func KindOf(filename string) Kind {
	if strings.HasPrefix(filename, SectionPrefix) {
		return KindSection
	}
	return KindPage
}

// Document is the tagged result of parsing one source file.
type Document struct {
	Kind    Kind
	Page    *Page
	Section *Section
}

// Path returns the document identity.
func (d Document) Path() string {
	if d.Kind == KindSection {
		return d.Section.File.Path
	}
	return d.Page.File.Path
}

// IsDraft reports whether the document is marked draft.
func (d Document) IsDraft() bool {
	if d.Kind == KindSection {
		return d.Section.Meta.Draft
	}
	return d.Page.Meta.Draft
}
