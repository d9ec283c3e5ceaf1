// Package feed renders RSS 2.0 documents for the whole site, a section or a
// taxonomy term.
package feed

import (
	"encoding/xml"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

// Context says what a feed is scoped to. It is one of SiteFeed,
// SectionFeed or TermFeed.
type Context interface {
	feedContext()
}

// SiteFeed scopes a feed to every page of a language.
type SiteFeed struct{}

// SectionFeed scopes a feed to the pages of one section.
type SectionFeed struct {
	Section *content.Section
}

// TermFeed scopes a feed to the pages of one taxonomy term.
type TermFeed struct {
	Taxonomy *library.Taxonomy
	Term     *library.TaxonomyTerm
}

func (SiteFeed) feedContext()    {}
func (SectionFeed) feedContext() {}
func (TermFeed) feedContext()    {}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Atom    string   `xml:"xmlns:atom,attr"`
	Channel channel  `xml:"channel"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type channel struct {
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language,omitempty"`
	Generator     string   `xml:"generator"`
	LastBuildDate string   `xml:"lastBuildDate,omitempty"`
	Self          atomLink `xml:"atom:link"`
	Items         []item   `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// Render builds the feed of pages for lang. basePath holds the URL path
// components the feed is written under ("" for the root). Pages without a
// date are left out; ok is false when nothing remains.
func Render(cfg *config.Config, pages []*content.Page, lang string, basePath []string, fc Context) (doc string, ok bool, err error) {
	dated := make([]*content.Page, 0, len(pages))
	for _, p := range pages {
		if p.Meta.Date != nil {
			dated = append(dated, p)
		}
	}
	if len(dated) == 0 {
		return "", false, nil
	}
	sort.SliceStable(dated, func(i, j int) bool {
		di, dj := dated[i].Date(), dated[j].Date()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return dated[i].Permalink < dated[j].Permalink
	})
	if cfg.FeedLimit > 0 && len(dated) > cfg.FeedLimit {
		dated = dated[:cfg.FeedLimit]
	}

	title, link := cfg.Title, cfg.MakePermalink(cfg.LanguagePrefix(lang))
	switch v := fc.(type) {
	case SectionFeed:
		title, link = joinTitle(cfg.Title, v.Section.Title()), v.Section.Permalink
	case TermFeed:
		title, link = joinTitle(cfg.Title, v.Term.Name), v.Term.Permalink
	}

	self := cfg.MakePermalink(strings.Join(append(append([]string{}, basePath...), cfg.FeedFilename), "/"))
	ch := channel{
		Title:         title,
		Link:          link,
		Description:   cfg.Description,
		Language:      lang,
		Generator:     "sitebuilder",
		LastBuildDate: dated[0].LastModified().Format(time.RFC1123Z),
		Self:          atomLink{Href: self, Rel: "self", Type: "application/rss+xml"},
	}
	for _, p := range dated {
		desc := p.Summary
		if desc == "" {
			desc = p.Content
		}
		ch.Items = append(ch.Items, item{
			Title:       p.Title(),
			Link:        p.Permalink,
			GUID:        p.Permalink,
			PubDate:     p.Date().Format(time.RFC1123Z),
			Description: desc,
		})
	}

	out, err := xml.MarshalIndent(rss{Version: "2.0", Atom: "http://www.w3.org/2005/Atom", Channel: ch}, "", "  ")
	if err != nil {
		return "", false, foundation.WrapError(err, foundation.CategoryOutput, "encode feed").
			WithContext("path", self).Fatal().Build()
	}
	return xml.Header + string(out) + "\n", true, nil
}

func joinTitle(site, scope string) string {
	switch {
	case site == "":
		return scope
	case scope == "":
		return site
	default:
		return site + " - " + scope
	}
}
