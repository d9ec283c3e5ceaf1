// Package search builds the per-language JSON search index and ships the
// client runtime that queries it.
package search

import (
	_ "embed"
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

// RuntimeJS is the client-side search script written as search.js.
//
//go:embed search.js
var RuntimeJS string

// RuntimeFilename is the output name of RuntimeJS.
const RuntimeFilename = "search.js"

// IndexFilename returns the output name of lang's index script.
func IndexFilename(lang string) string {
	return "search_index." + lang + ".js"
}

// Builder serializes the searchable documents of one language.
type Builder interface {
	BuildIndex(lang string, lib *library.Library, cfg *config.Config) (string, error)
}

// Document is one searchable entry.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Body        string `json:"body"`
}

// Index is the serialized form assigned to window.searchIndex.
type Index struct {
	Lang      string     `json:"lang"`
	Documents []Document `json:"documents"`
}

// JSONBuilder is the default Builder.
type JSONBuilder struct{}

// BuildIndex collects every section of lang that opts into the index along
// with its non-draft pages that opt in as well.
func (JSONBuilder) BuildIndex(lang string, lib *library.Library, _ *config.Config) (string, error) {
	idx := Index{Lang: lang, Documents: []Document{}}
	seen := make(map[string]bool)
	for _, s := range lib.Sections() {
		if s.Lang != lang || !s.Meta.InSearchIndex || s.Meta.Draft {
			continue
		}
		if s.ShouldRenderListing() && s.Meta.RedirectTo == "" && !seen[s.Permalink] {
			seen[s.Permalink] = true
			idx.Documents = append(idx.Documents, sectionDocument(s))
		}
		for _, p := range lib.PagesFor(append(append([]string{}, s.Pages...), s.IgnoredPages...)) {
			if p.Meta.Draft || !p.Meta.InSearchIndex || seen[p.Permalink] {
				continue
			}
			seen[p.Permalink] = true
			idx.Documents = append(idx.Documents, pageDocument(p))
		}
	}

	out, err := json.Marshal(idx)
	if err != nil {
		return "", foundation.WrapError(err, foundation.CategoryOutput, "encode search index").
			WithContext("lang", lang).Fatal().Build()
	}
	return string(out), nil
}

// Script wraps a serialized index in the assignment search.js expects.
func Script(index string) string {
	return "window.searchIndex = " + index + ";"
}

func sectionDocument(s *content.Section) Document {
	return Document{ID: s.Permalink, Title: s.Title(), Description: s.Meta.Description, Body: PlainText(s.Content)}
}

func pageDocument(p *content.Page) Document {
	return Document{ID: p.Permalink, Title: p.Title(), Description: p.Meta.Description, Body: PlainText(p.Content)}
}

// PlainText strips markup from rendered HTML and collapses whitespace.
func PlainText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(string(name)) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isRawText(tag string) bool {
	return tag == "script" || tag == "style"
}
