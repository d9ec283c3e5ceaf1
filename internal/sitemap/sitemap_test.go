package sitemap

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

const contentDir = "/site/content"

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("base_url: https://example.com\n" + extra))
	require.NoError(t, err)
	cfg.Paths = config.DefaultPaths("/site")
	return cfg
}

func entries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{Permalink: fmt.Sprintf("https://example.com/p%06d/", i)}
	}
	return out
}

func TestSplit_ChunkCounts(t *testing.T) {
	cases := map[int]int{1: 1, 29999: 1, 30000: 1, 30001: 2, 60001: 3}
	for n, want := range cases {
		chunks := Split(entries(n))
		require.Len(t, chunks, want, "entries=%d", n)

		total := 0
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), Limit)
			total += len(c)
		}
		require.Equal(t, n, total)
	}
}

func TestFiles_SingleSitemap(t *testing.T) {
	cfg := testConfig(t, "")
	files, err := Files(cfg, entries(3))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "sitemap.xml", files[0].Filename)

	var set urlset
	require.NoError(t, xml.Unmarshal([]byte(files[0].Content), &set))
	require.Len(t, set.URLs, 3)
}

func TestFiles_IndexReferencesEveryChunk(t *testing.T) {
	cfg := testConfig(t, "")
	files, err := Files(cfg, entries(60001))
	require.NoError(t, err)
	require.Len(t, files, 4)

	produced := map[string]bool{}
	for _, f := range files {
		produced[f.Filename] = true
	}
	index := files[len(files)-1]
	require.Equal(t, "sitemap.xml", index.Filename)

	var idx sitemapIndex
	require.NoError(t, xml.Unmarshal([]byte(index.Content), &idx))
	require.Len(t, idx.Sitemaps, 3)
	for _, s := range idx.Sitemaps {
		require.False(t, strings.HasSuffix(s.Loc, "/"))
		name := strings.TrimPrefix(s.Loc, "https://example.com/")
		require.True(t, produced[name], name)
	}
}

func TestFindEntries(t *testing.T) {
	cfg := testConfig(t, "taxonomies:\n  - name: tags\n    paginate_by: 1\n")
	lib := library.New(cfg)
	docs := map[string]string{
		"_index.md":        "",
		"blog/_index.md":   "---\npaginate_by: 1\n---\n",
		"blog/a.md":        "---\ndate: 2024-01-02T00:00:00Z\ntaxonomies:\n  tags: [Rust, Go]\n---\n",
		"blog/b.md":        "---\ntaxonomies:\n  tags: [Rust]\n---\n",
		"hidden/_index.md": "---\nrender: false\n---\n",
		"hidden/c.md":      "",
	}
	for rel, raw := range docs {
		doc, err := content.Parse(contentDir, filepath.Join(contentDir, rel), []byte(raw), cfg)
		require.NoError(t, err)
		lib.Insert(doc)
	}
	require.NoError(t, lib.PopulateTaxonomies())
	lib.PopulateSections()

	gitDate := time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)
	got := FindEntries(lib, lib.Taxonomies(), cfg, func(path string) (time.Time, bool) {
		if strings.HasSuffix(path, "b.md") {
			return gitDate, true
		}
		return time.Time{}, false
	})

	byLink := map[string]string{}
	for _, e := range got {
		byLink[e.Permalink] = e.Updated
	}
	require.Equal(t, "2024-01-02", byLink["https://example.com/blog/a/"])
	require.Equal(t, "2023-05-06", byLink["https://example.com/blog/b/"])
	require.Contains(t, byLink, "https://example.com/")
	require.Contains(t, byLink, "https://example.com/blog/")
	require.Contains(t, byLink, "https://example.com/blog/page/2/")
	require.Contains(t, byLink, "https://example.com/hidden/c/")
	require.NotContains(t, byLink, "https://example.com/hidden/")
	require.Contains(t, byLink, "https://example.com/tags/")
	require.Contains(t, byLink, "https://example.com/tags/rust/")
	require.Contains(t, byLink, "https://example.com/tags/rust/page/2/")
	require.Contains(t, byLink, "https://example.com/tags/go/")

	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1].Permalink, got[i].Permalink)
	}
}
