package feed

import (
	"encoding/xml"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

func testConfig() *config.Config {
	return &config.Config{BaseURL: "https://example.com", Title: "Site", DefaultLanguage: "en", FeedFilename: "rss.xml"}
}

func datedPage(slug string, day int) *content.Page {
	d := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &content.Page{
		Meta:      content.PageFrontMatter{Title: slug, Date: &d},
		Permalink: "https://example.com/" + slug + "/",
		Content:   "<p>" + slug + "</p>",
	}
}

func decode(t *testing.T, doc string) rss {
	t.Helper()
	var out rss
	require.NoError(t, xml.Unmarshal([]byte(doc), &out))
	return out
}

func TestRender_SortsNewestFirstAndSkipsUndated(t *testing.T) {
	undated := &content.Page{Meta: content.PageFrontMatter{Title: "undated"}, Permalink: "https://example.com/u/"}
	doc, ok, err := Render(testConfig(), []*content.Page{datedPage("a", 1), undated, datedPage("b", 3)}, "en", nil, SiteFeed{})
	require.NoError(t, err)
	require.True(t, ok)

	feed := decode(t, doc)
	require.Len(t, feed.Channel.Items, 2)
	require.Equal(t, "b", feed.Channel.Items[0].Title)
	require.Equal(t, "Site", feed.Channel.Title)
	require.Contains(t, doc, `<atom:link href="https://example.com/rss.xml" rel="self"`)
}

func TestRender_NoDatedPages(t *testing.T) {
	_, ok, err := Render(testConfig(), []*content.Page{{Permalink: "https://example.com/x/"}}, "en", nil, SiteFeed{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRender_Limit(t *testing.T) {
	cfg := testConfig()
	cfg.FeedLimit = 2
	var pages []*content.Page
	for i := 1; i <= 5; i++ {
		pages = append(pages, datedPage(fmt.Sprintf("p%d", i), i))
	}
	doc, _, err := Render(cfg, pages, "en", nil, SiteFeed{})
	require.NoError(t, err)
	require.Len(t, decode(t, doc).Channel.Items, 2)
}

func TestRender_ContextVariants(t *testing.T) {
	cfg := testConfig()
	pages := []*content.Page{datedPage("a", 1)}

	section := &content.Section{Meta: content.SectionFrontMatter{Title: "Blog"}, Permalink: "https://example.com/blog/"}
	doc, _, err := Render(cfg, pages, "en", []string{"blog"}, SectionFeed{Section: section})
	require.NoError(t, err)
	feed := decode(t, doc)
	require.Equal(t, "Site - Blog", feed.Channel.Title)
	require.Equal(t, "https://example.com/blog/", feed.Channel.Link)
	require.Contains(t, doc, `href="https://example.com/blog/rss.xml"`)

	tax := &library.Taxonomy{Kind: config.TaxonomyConfig{Name: "tags"}}
	term := &library.TaxonomyTerm{Name: "Rust", Permalink: "https://example.com/tags/rust/"}
	doc, _, err = Render(cfg, pages, "en", []string{"tags", "rust"}, TermFeed{Taxonomy: tax, Term: term})
	require.NoError(t, err)
	feed = decode(t, doc)
	require.Equal(t, "Site - Rust", feed.Channel.Title)
	require.Contains(t, doc, `href="https://example.com/tags/rust/rss.xml"`)
}

func TestRender_PrefersSummary(t *testing.T) {
	p := datedPage("a", 1)
	p.Summary = "<p>short</p>"
	doc, _, err := Render(testConfig(), []*content.Page{p}, "en", nil, SiteFeed{})
	require.NoError(t, err)
	require.Equal(t, "<p>short</p>", decode(t, doc).Channel.Items[0].Description)
}
