// Package sitemap collects the URLs of a site and encodes them as sitemap
// documents, splitting into several files plus an index past Limit.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

// Limit is the sitemap protocol's maximum number of URLs per file.
const Limit = 30000

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Entry is one URL of the sitemap.
type Entry struct {
	Permalink string
	// Updated is a W3C date, or "" when unknown.
	Updated string
}

// LastModFunc reports a fallback modification time for a source path.
type LastModFunc func(sourcePath string) (time.Time, bool)

// FindEntries returns one entry per renderable page, section listing,
// section pager and taxonomy list/term, deduplicated and sorted by permalink.
func FindEntries(lib *library.Library, taxonomies []library.Taxonomy, cfg *config.Config, lastmod LastModFunc) []Entry {
	seen := make(map[string]Entry)
	add := func(e Entry) {
		if prev, ok := seen[e.Permalink]; ok && prev.Updated != "" {
			return
		}
		seen[e.Permalink] = e
	}
	date := func(t time.Time, source string) string {
		if t.IsZero() && lastmod != nil && source != "" {
			t, _ = lastmod(source)
		}
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02")
	}

	for _, p := range lib.Pages() {
		if p.Meta.Draft {
			continue
		}
		add(Entry{Permalink: p.Permalink, Updated: date(p.LastModified(), p.File.Path)})
	}
	for _, s := range lib.Sections() {
		if !s.ShouldRenderListing() || s.Meta.RedirectTo != "" {
			continue
		}
		add(Entry{Permalink: s.Permalink})
		if s.Meta.IsPaginated() {
			for _, pager := range library.NewSectionPaginator(cfg, s).Pagers[1:] {
				add(Entry{Permalink: pager.Permalink})
			}
		}
	}
	for i := range taxonomies {
		tax := &taxonomies[i]
		if len(tax.Items) == 0 {
			continue
		}
		add(Entry{Permalink: tax.Permalink})
		for j := range tax.Items {
			term := &tax.Items[j]
			add(Entry{Permalink: term.Permalink})
			if tax.Kind.IsPaginated() {
				for _, pager := range library.NewTaxonomyPaginator(cfg, tax, term).Pagers[1:] {
					add(Entry{Permalink: pager.Permalink})
				}
			}
		}
	}

	out := make([]Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Permalink < out[j].Permalink })
	return out
}

// Split groups entries into chunks of at most Limit. There is always at
// least one chunk.
func Split(entries []Entry) [][]Entry {
	if len(entries) <= Limit {
		return [][]Entry{entries}
	}
	var chunks [][]Entry
	for start := 0; start < len(entries); start += Limit {
		chunks = append(chunks, entries[start:min(start+Limit, len(entries))])
	}
	return chunks
}

// File is one sitemap document to write at the output root.
type File struct {
	Filename string
	Content  string
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []url    `xml:"url"`
}

type url struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr"`
	Sitemaps []indexEntry `xml:"sitemap"`
}

type indexEntry struct {
	Loc string `xml:"loc"`
}

// Files encodes entries. Fewer than Limit entries give a single
// sitemap.xml; otherwise each chunk becomes sitemap<N>.xml and sitemap.xml
// is an index of the chunk URLs.
func Files(cfg *config.Config, entries []Entry) ([]File, error) {
	if len(entries) < Limit {
		doc, err := encodeURLSet(entries)
		if err != nil {
			return nil, err
		}
		return []File{{Filename: "sitemap.xml", Content: doc}}, nil
	}

	var (
		files []File
		index = sitemapIndex{Xmlns: xmlns}
	)
	for i, chunk := range Split(entries) {
		doc, err := encodeURLSet(chunk)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("sitemap%d.xml", i+1)
		files = append(files, File{Filename: name, Content: doc})
		index.Sitemaps = append(index.Sitemaps, indexEntry{Loc: strings.TrimSuffix(cfg.MakePermalink(name), "/")})
	}
	doc, err := encode(index)
	if err != nil {
		return nil, err
	}
	return append(files, File{Filename: "sitemap.xml", Content: doc}), nil
}

func encodeURLSet(entries []Entry) (string, error) {
	set := urlset{Xmlns: xmlns, URLs: make([]url, 0, len(entries))}
	for _, e := range entries {
		set.URLs = append(set.URLs, url{Loc: e.Permalink, LastMod: e.Updated})
	}
	return encode(set)
}

func encode(v any) (string, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", foundation.WrapError(err, foundation.CategoryOutput, "encode sitemap").Fatal().Build()
	}
	return xml.Header + string(out) + "\n", nil
}
