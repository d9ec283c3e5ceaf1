package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("base_url: https://example.com\nlanguages:\n  - code: fr\n"))
	require.NoError(t, err)
	return cfg
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindSection, KindOf("_index.md"))
	require.Equal(t, KindSection, KindOf("_index.fr.md"))
	require.Equal(t, KindPage, KindOf("index.md"))
	require.Equal(t, KindPage, KindOf("post.md"))
}

func TestParse_Page(t *testing.T) {
	cfg := testConfig(t)
	raw := []byte("---\ntitle: Hello World\ndate: 2024-03-01\ntaxonomies:\n  tags: [rust]\n---\nBody\n")

	doc, err := Parse("/site/content", "/site/content/blog/hello-world.md", raw, cfg)
	require.NoError(t, err)
	require.Equal(t, KindPage, doc.Kind)

	p := doc.Page
	require.Equal(t, "en", p.Lang)
	require.Equal(t, "hello-world", p.Slug)
	require.Equal(t, "/blog/hello-world/", p.Path)
	require.Equal(t, "https://example.com/blog/hello-world/", p.Permalink)
	require.Equal(t, "/site/content/blog", p.File.Parent)
	require.Equal(t, []string{"rust"}, p.Meta.Taxonomies["tags"])
	require.True(t, p.Meta.InSearchIndex)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.Date())
	require.Equal(t, "Body\n", p.RawContent)
}

func TestParse_TranslatedPageAndPathOverride(t *testing.T) {
	cfg := testConfig(t)
	raw := []byte("---\npath: /about-us\n---\n")

	doc, err := Parse("/c", "/c/about.fr.md", raw, cfg)
	require.NoError(t, err)
	require.Equal(t, "fr", doc.Page.Lang)
	require.Equal(t, "/fr/about-us/", doc.Page.Path)
	require.Equal(t, filepath.Join("/c", "about"), doc.Page.File.Canonical)
}

func TestParse_BundlePage(t *testing.T) {
	cfg := testConfig(t)
	doc, err := Parse("/c", "/c/blog/my-post/index.md", []byte("Body"), cfg)
	require.NoError(t, err)
	p := doc.Page
	require.Equal(t, "/c/blog", p.File.Parent)
	require.Equal(t, "/c/blog/my-post", p.File.BundleDir)
	require.Equal(t, "/blog/my-post/", p.Path)
}

func TestParse_Section(t *testing.T) {
	cfg := testConfig(t)
	raw := []byte("---\nsort_by: date\npaginate_by: 5\ninsert_anchor_links: left\n---\n")

	doc, err := Parse("/c", "/c/blog/_index.fr.md", raw, cfg)
	require.NoError(t, err)
	require.Equal(t, KindSection, doc.Kind)
	s := doc.Section
	require.Equal(t, "/fr/blog/", s.Path)
	require.Equal(t, "/c", s.File.GrandParent)
	require.Equal(t, SortByDate, s.Meta.SortBy)
	require.Equal(t, "page", s.Meta.PaginatePath)
	require.True(t, s.Meta.Render)
	require.Equal(t, config.InsertAnchorLeft, s.Meta.InsertAnchorLinks)
}

func TestParse_Errors(t *testing.T) {
	cfg := testConfig(t)
	cases := map[string]struct {
		path string
		raw  string
	}{
		"unknown language":   {"/c/post.de.md", "Body"},
		"unclosed":           {"/c/post.md", "---\ntitle: x\n"},
		"unknown key":        {"/c/post.md", "---\ntitel: x\n---\n"},
		"bad sort_by":        {"/c/_index.md", "---\nsort_by: random\n---\n"},
		"negative paginate":  {"/c/_index.md", "---\npaginate_by: -1\n---\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("/c", tc.path, []byte(tc.raw), cfg)
			require.Error(t, err)
			require.True(t, foundation.HasCategory(err, foundation.CategoryContent))
			classified, _ := foundation.AsClassified(err)
			path, _ := classified.Context().GetString("path")
			require.Equal(t, tc.path, path)
		})
	}
}

func TestParse_DottedNameOnSingleLanguageSite(t *testing.T) {
	cfg, err := config.Parse([]byte("base_url: https://example.com\n"))
	require.NoError(t, err)

	doc, err := Parse("/c", "/c/notes/v1.2-release.md", []byte("Body"), cfg)
	require.NoError(t, err)
	p := doc.Page
	require.Equal(t, "en", p.Lang)
	require.Equal(t, "v1.2-release", p.File.Name)
	require.Equal(t, "/notes/v1-2-release/", p.Path)

	// A multilingual site still rejects the suffix.
	_, err = Parse("/c", "/c/notes/v1.2-release.md", []byte("Body"), testConfig(t))
	require.True(t, foundation.HasCategory(err, foundation.CategoryContent))
}

func TestNewDefaultSection(t *testing.T) {
	cfg := testConfig(t)
	en := NewDefaultSection("/c", "en", cfg)
	fr := NewDefaultSection("/c", "fr", cfg)
	require.Equal(t, "/c/_index.md", en.File.Path)
	require.Equal(t, "/c/_index.fr.md", fr.File.Path)
	require.Equal(t, "https://example.com/", en.Permalink)
	require.Equal(t, "https://example.com/fr/", fr.Permalink)
	require.True(t, en.IsIndex())
}

func TestParseFile_CollectsAssets(t *testing.T) {
	cfg := testConfig(t)
	cfg.IgnoredContent = []string{"*.psd"}
	dir := t.TempDir()
	bundle := filepath.Join(dir, "blog", "trip")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "index.md"), []byte("Trip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "img", "a.jpg"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "raw.psd"), []byte("x"), 0o600))

	doc, err := ParseFile(dir, filepath.Join(bundle, "index.md"), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(bundle, "img", "a.jpg")}, doc.Page.Assets)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":     "hello-world",
		"Crème brûlée!":   "creme-brulee",
		"  --rust--  ":    "rust",
		"C++ & Go":        "c-go",
		"2024_01_release": "2024-01-release",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestSortPages(t *testing.T) {
	d := func(day int) *time.Time { v := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC); return &v }
	w := func(n int) *int { return &n }
	pages := []*Page{
		{File: FileInfo{Path: "a"}, Permalink: "/a/", Meta: PageFrontMatter{Title: "B", Date: d(1), Weight: w(2)}},
		{File: FileInfo{Path: "b"}, Permalink: "/b/", Meta: PageFrontMatter{Title: "a", Date: d(3)}},
		{File: FileInfo{Path: "c"}, Permalink: "/c/", Meta: PageFrontMatter{Weight: w(1)}},
	}

	sorted, ignored := SortPages(pages, SortByDate)
	require.Equal(t, []string{"b", "a"}, sorted)
	require.Equal(t, []string{"c"}, ignored)

	sorted, ignored = SortPages(pages, SortByWeight)
	require.Equal(t, []string{"c", "a"}, sorted)
	require.Equal(t, []string{"b"}, ignored)

	sorted, _ = SortPages(pages, SortByTitle)
	require.Equal(t, []string{"b", "a"}, sorted)

	sorted, ignored = SortPages(pages, SortByNone)
	require.Equal(t, []string{"a", "b", "c"}, sorted)
	require.Empty(t, ignored)
}
