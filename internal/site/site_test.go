package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
)

const baseConfig = `base_url: https://example.com
title: Example
generate_feed: true
taxonomies:
  - name: tags
    feed: true
`

func writeFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func readOutput(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, "public", filepath.FromSlash(rel)))
	require.NoError(t, err, rel)
	return string(data)
}

func loadSite(t *testing.T, root string, mode config.BuildMode, opts ...Option) *Site {
	t.Helper()
	cfg, err := config.Load(root, "", mode)
	require.NoError(t, err)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	return s
}

// blogFixture is a small site with a paginated blog, a tagged set of posts
// and a page carrying an alias.
func blogFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/_index.md", "---\ntitle: Home\n---\nWelcome\n")
	writeFile(t, root, "content/blog/_index.md", "---\ntitle: Blog\nsort_by: date\npaginate_by: 2\ngenerate_feed: true\n---\n")
	for i, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		n := string(rune('1' + i))
		writeFile(t, root, "content/blog/post-"+n+".md",
			"---\ntitle: Post "+n+"\ndate: "+date+"\ntaxonomies:\n  tags: [Rust]\n---\nBody of post "+n+"\n")
	}
	writeFile(t, root, "content/about.md", "---\ntitle: About\naliases: [old-about/, legacy/about.html]\n---\nSee [the first post](@/blog/post-1.md).\n")
	writeFile(t, root, "static/css/site.css", "body{}")
	return root
}

func TestBuild_WritesOutputTree(t *testing.T) {
	root := blogFixture(t)
	s := loadSite(t, root, config.ModeBuild)

	report, err := s.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.NotEmpty(t, report.ID)
	require.Equal(t, 1, report.StageCounts[StageSections])

	for _, rel := range []string{
		"index.html", "blog/index.html", "blog/post-1/index.html", "about/index.html",
		"404.html", "robots.txt", "sitemap.xml", "rss.xml", "blog/rss.xml",
		"tags/index.html", "tags/rust/index.html", "tags/rust/rss.xml", "css/site.css",
	} {
		require.FileExists(t, filepath.Join(root, "public", filepath.FromSlash(rel)))
	}

	require.Contains(t, readOutput(t, root, "about/index.html"), `href="https://example.com/blog/post-1/"`)
	require.Contains(t, readOutput(t, root, "old-about/index.html"), "url=https://example.com/about/")
	require.Contains(t, readOutput(t, root, "legacy/about.html"), "url=https://example.com/about/")
	require.Contains(t, readOutput(t, root, "robots.txt"), "Sitemap: https://example.com/sitemap.xml")
	require.Contains(t, readOutput(t, root, "sitemap.xml"), "<loc>https://example.com/tags/rust/</loc>")
}

func TestBuild_PaginatesSections(t *testing.T) {
	root := blogFixture(t)
	s := loadSite(t, root, config.ModeBuild)
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	first := readOutput(t, root, "blog/index.html")
	require.Contains(t, first, "https://example.com/blog/post-3/")
	require.Contains(t, first, "https://example.com/blog/post-2/")
	require.NotContains(t, first, "https://example.com/blog/post-1/")

	require.Contains(t, readOutput(t, root, "blog/page/1/index.html"), "url=https://example.com/blog/")
	second := readOutput(t, root, "blog/page/2/index.html")
	require.Contains(t, second, "https://example.com/blog/post-1/")
	require.NoFileExists(t, filepath.Join(root, "public", "blog", "page", "3", "index.html"))

	s.WithLibrary(func(lib *library.Library) {
		sec, ok := lib.SectionByRelative("blog/_index.md")
		require.True(t, ok)
		p := library.NewSectionPaginator(s.Config(), sec)
		require.Len(t, p.Pagers, 2)
		var joined []string
		for _, pager := range p.Pagers {
			joined = append(joined, pager.Pages...)
		}
		require.Empty(t, cmp.Diff(sec.Pages, joined))
	})
}

func TestBuild_MemoryStoreWithLiveReload(t *testing.T) {
	root := blogFixture(t)
	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store), WithLiveReload(true))

	_, err := s.Build(context.Background())
	require.NoError(t, err)

	page, ok := store.Lookup("/blog/post-1/")
	require.True(t, ok)
	require.Contains(t, string(page), output.LiveReloadScript)

	_, ok = store.Lookup("/sitemap.xml")
	require.True(t, ok)
	require.NoFileExists(t, filepath.Join(root, "public", "blog", "post-1", "index.html"))
	// Static files are always copied to disk.
	require.FileExists(t, filepath.Join(root, "public", "css", "site.css"))

	_, err = s.Build(context.Background())
	require.NoError(t, err)
	require.Positive(t, store.Len())
}

func TestLoad_CollisionNamesAllDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	a := writeFile(t, root, "content/a.md", "---\ntitle: A\npath: same\n---\n")
	b := writeFile(t, root, "content/b.md", "---\ntitle: B\npath: same\n---\n")

	cfg, err := config.Load(root, "", config.ModeBuild)
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)

	err = s.Load(context.Background())
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryGraph))
	require.Contains(t, err.Error(), a)
	require.Contains(t, err.Error(), b)
}

func TestLoad_DuplicateAliasIsCollision(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	a := writeFile(t, root, "content/a.md", "---\ntitle: A\naliases: [old/]\n---\n")
	b := writeFile(t, root, "content/b.md", "---\ntitle: B\naliases: [old/]\n---\n")

	cfg, err := config.Load(root, "", config.ModeBuild)
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)

	err = s.Load(context.Background())
	require.True(t, foundation.HasCategory(err, foundation.CategoryGraph))
	require.Contains(t, err.Error(), "/old/")
	require.Contains(t, err.Error(), a)
	require.Contains(t, err.Error(), b)
}

func TestLoad_DottedFileNameOnSingleLanguageSite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/notes/v1.2-release.md", "---\ntitle: Release\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	_, err := s.Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readOutput(t, root, "notes/v1-2-release/index.html"), "Release")
}

func TestLoad_SynthesizesRootSectionPerLanguage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", "base_url: https://example.com\nlanguages:\n  - code: fr\n")
	writeFile(t, root, "content/page.md", "---\ntitle: Page\n---\n")
	writeFile(t, root, "content/page.fr.md", "---\ntitle: Page\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	s.WithLibrary(func(lib *library.Library) {
		var roots []string
		for _, sec := range lib.Sections() {
			if sec.IsIndex() {
				roots = append(roots, sec.Lang+"="+sec.Permalink)
			}
		}
		require.ElementsMatch(t, []string{"en=https://example.com/", "fr=https://example.com/fr/"}, roots)
		require.Empty(t, lib.OrphanPages())
	})
}

func TestLoad_SearchMismatchOnRootSection(t *testing.T) {
	cases := []struct {
		name    string
		extra   string
		index   string
		wantErr bool
	}{
		{"default language", "build_search_index: true\n", "content/_index.md", true},
		{"other language unchecked", "languages:\n  - code: fr\n    search: true\n", "content/_index.fr.md", false},
		{"other language checked", "search_check_all_languages: true\nlanguages:\n  - code: fr\n    search: true\n", "content/_index.fr.md", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "config.yaml", "base_url: https://example.com\n"+tc.extra)
			writeFile(t, root, tc.index, "---\nin_search_index: false\n---\n")

			cfg, err := config.Load(root, "", config.ModeBuild)
			require.NoError(t, err)
			s, err := New(cfg)
			require.NoError(t, err)
			err = s.Load(context.Background())
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, foundation.HasCategory(err, foundation.CategoryConfig))
		})
	}
}

func TestLoad_UnresolvedInternalLink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/a.md", "---\ntitle: A\n---\n[gone](@/missing.md)\n")

	cfg, err := config.Load(root, "", config.ModeBuild)
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)
	err = s.Load(context.Background())
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryLink))
	require.Contains(t, err.Error(), "missing.md")
}

func TestLoad_BrokenAnchor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/a.md", "---\ntitle: A\n---\n## Real heading\n")
	writeFile(t, root, "content/b.md", "---\ntitle: B\n---\n[ok](@/a.md#real-heading) [bad](@/a.md#nope)\n")

	cfg, err := config.Load(root, "", config.ModeBuild)
	require.NoError(t, err)
	s, err := New(cfg)
	require.NoError(t, err)
	err = s.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
	require.NotContains(t, err.Error(), "real-heading")
}

func TestLoad_Drafts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/draft.md", "---\ntitle: Draft\ndraft: true\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	pages, _ := s.librarySize()
	require.Zero(t, pages)

	s = loadSite(t, root, config.ModeBuild, WithIncludeDrafts(true))
	pages, _ = s.librarySize()
	require.Equal(t, 1, pages)
}

func TestLoad_IgnoredContentAndHiddenFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig+"ignored_content: [\"*.tmp.md\"]\n")
	writeFile(t, root, "content/keep.md", "---\ntitle: Keep\n---\n")
	writeFile(t, root, "content/skip.tmp.md", "---\ntitle: Skip\n---\n")
	writeFile(t, root, "content/.hidden/secret.md", "---\ntitle: Secret\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	s.WithLibrary(func(lib *library.Library) {
		pages := lib.Pages()
		require.Len(t, pages, 1)
		require.Equal(t, "keep.md", pages[0].File.Relative)
	})
}

func TestLoad_AnchorPolicyComesFromParentSection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/docs/_index.md", "---\ntitle: Docs\ninsert_anchor_links: left\n---\n")
	writeFile(t, root, "content/docs/intro.md", "---\ntitle: Intro\n---\n## Install\n")
	writeFile(t, root, "content/plain.md", "---\ntitle: Plain\n---\n## Install\n")

	s := loadSite(t, root, config.ModeBuild)
	s.WithLibrary(func(lib *library.Library) {
		intro, ok := lib.PageByRelative("docs/intro.md")
		require.True(t, ok)
		require.Contains(t, intro.Content, `class="anchor"`)
		plain, ok := lib.PageByRelative("plain.md")
		require.True(t, ok)
		require.NotContains(t, plain.Content, `class="anchor"`)
	})
}

func TestBuild_SectionRedirectAndUnrendered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/moved/_index.md", "---\nredirect_to: /blog/\n---\n")
	writeFile(t, root, "content/hidden/_index.md", "---\nrender: false\n---\n")
	writeFile(t, root, "content/hidden/visible.md", "---\ntitle: Visible\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	require.Contains(t, readOutput(t, root, "moved/index.html"), "url=https://example.com/blog/")
	require.NoFileExists(t, filepath.Join(root, "public", "hidden", "index.html"))
	require.FileExists(t, filepath.Join(root, "public", "hidden", "visible", "index.html"))
}

func TestBuild_TransparentSectionRendersPagesOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/blog/_index.md", "---\ntitle: Blog\n---\n")
	writeFile(t, root, "content/blog/2024/_index.md", "---\ntitle: \"2024\"\ntransparent: true\n---\n")
	writeFile(t, root, "content/blog/2024/post.md", "---\ntitle: Post\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	s.WithLibrary(func(lib *library.Library) {
		blog, ok := lib.SectionByRelative("blog/_index.md")
		require.True(t, ok)
		require.Len(t, blog.Pages, 1)
		require.Empty(t, s.ownedPages(blog))
	})
	_, err := s.Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readOutput(t, root, "blog/index.html"), "https://example.com/blog/2024/post/")
}

func TestBuild_RefusesToCleanSiteRoot(t *testing.T) {
	root := blogFixture(t)
	cfg, err := config.Load(root, "", config.ModeBuild)
	require.NoError(t, err)
	cfg.Paths.Output = root
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))

	report, err := s.Build(context.Background())
	require.True(t, foundation.HasCategory(err, foundation.CategoryConfig))
	require.Equal(t, StageClean, report.FailedStage)
	require.FileExists(t, filepath.Join(root, "config.yaml"))
	require.FileExists(t, filepath.Join(root, "content", "about.md"))
}

func TestBuild_CanceledContext(t *testing.T) {
	root := blogFixture(t)
	s := loadSite(t, root, config.ModeBuild)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := s.Build(ctx)
	require.Error(t, err)
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorCanceled, se.Kind)
	require.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestAddAndRenderPage_TaxonomyRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	path := writeFile(t, root, "content/post.md", "---\ntitle: Post\ntaxonomies:\n  tags: [rust]\n---\n")

	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	s.WithLibrary(func(lib *library.Library) {
		tax, ok := lib.Taxonomy("tags", "en")
		require.True(t, ok)
		term, ok := tax.Term("rust")
		require.True(t, ok)
		require.Equal(t, []string{path}, term.Pages)
	})

	writeFile(t, root, "content/post.md", "---\ntitle: Post renamed\n---\n")
	require.NoError(t, s.AddAndRenderPage(context.Background(), path))

	s.WithLibrary(func(lib *library.Library) {
		tax, ok := lib.Taxonomy("tags", "en")
		require.True(t, ok)
		require.Empty(t, tax.Items)
	})
	page, ok := store.Lookup("/post/")
	require.True(t, ok)
	require.Contains(t, string(page), "Post renamed")
}

func TestAddAndRenderPage_DraftRemovesPageAndListings(t *testing.T) {
	root := blogFixture(t)
	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)
	_, ok := store.Lookup("/blog/page/2/")
	require.True(t, ok)

	path := writeFile(t, root, "content/blog/post-3.md",
		"---\ntitle: Post 3\ndate: 2024-01-03\ndraft: true\ntaxonomies:\n  tags: [Rust]\n---\n")
	require.NoError(t, s.AddAndRenderPage(context.Background(), path))

	_, ok = store.Lookup("/blog/post-3/")
	require.False(t, ok)
	listing, ok := store.Lookup("/blog/")
	require.True(t, ok)
	require.NotContains(t, string(listing), "Post 3")
	require.Contains(t, string(listing), "https://example.com/blog/post-1/")
	_, ok = store.Lookup("/blog/page/2/")
	require.False(t, ok, "the listing fits one pager now")

	term, ok := store.Lookup("/tags/rust/")
	require.True(t, ok)
	require.NotContains(t, string(term), "https://example.com/blog/post-3/")
	for _, key := range []string{"/blog/rss.xml", "/rss.xml"} {
		feed, ok := store.Lookup(key)
		require.True(t, ok, key)
		require.NotContains(t, string(feed), "https://example.com/blog/post-3/", key)
	}
}

func TestAddAndRenderPage_DraftDropsEmptiedTerm(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	path := writeFile(t, root, "content/post.md", "---\ntitle: Post\naliases: [old-post/]\ntaxonomies:\n  tags: [rust]\n---\n")

	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)
	_, ok := store.Lookup("/tags/rust/")
	require.True(t, ok)

	writeFile(t, root, "content/post.md", "---\ntitle: Post\ndraft: true\naliases: [old-post/]\ntaxonomies:\n  tags: [rust]\n---\n")
	require.NoError(t, s.AddAndRenderPage(context.Background(), path))

	for _, gone := range []string{"/post/", "/old-post/", "/tags/", "/tags/rust/", "/tags/rust/rss.xml"} {
		_, ok := store.Lookup(gone)
		require.False(t, ok, gone)
	}
	home, ok := store.Lookup("/")
	require.True(t, ok)
	require.NotContains(t, string(home), "https://example.com/post/")
}

func TestAddAndRenderSection_ReplacesSection(t *testing.T) {
	root := blogFixture(t)
	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	path := writeFile(t, root, "content/blog/_index.md", "---\ntitle: Journal\nsort_by: date\n---\n")
	require.NoError(t, s.AddAndRenderSection(context.Background(), path))

	listing, ok := store.Lookup("/blog/")
	require.True(t, ok)
	require.Contains(t, string(listing), "Journal")
	require.Contains(t, string(listing), "https://example.com/blog/post-1/")
}

func TestPopulate_Idempotent(t *testing.T) {
	root := blogFixture(t)
	s := loadSite(t, root, config.ModeBuild)

	snapshot := func() map[string][]string {
		out := map[string][]string{}
		s.WithLibrary(func(lib *library.Library) {
			for _, sec := range lib.Sections() {
				out["pages:"+sec.File.Relative] = append([]string{}, sec.Pages...)
				out["subsections:"+sec.File.Relative] = append([]string{}, sec.Subsections...)
				out["ancestors:"+sec.File.Relative] = append([]string{}, sec.Ancestors...)
			}
			for _, tax := range lib.Taxonomies() {
				for _, term := range tax.Items {
					out["term:"+term.Slug] = append([]string{}, term.Pages...)
				}
			}
		})
		return out
	}

	before := snapshot()
	s.mu.Lock()
	require.NoError(t, s.populate())
	require.NoError(t, s.populate())
	s.mu.Unlock()
	require.Empty(t, cmp.Diff(before, snapshot()))
}

func TestReloadTemplates_PicksUpOverrides(t *testing.T) {
	root := blogFixture(t)
	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	writeFile(t, root, "templates/page.html", "custom {{ .page.Meta.Title }}")
	require.NoError(t, s.ReloadTemplates(context.Background()))

	page, ok := store.Lookup("/about/")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(string(page), "custom About"))
}

func TestTemplateFuncs(t *testing.T) {
	root := blogFixture(t)
	writeFile(t, root, "templates/page.html",
		`{{ (get_page "blog/post-2.md").Meta.Title }}|{{ (get_section "blog/_index.md").Meta.Title }}|`+
			`{{ get_taxonomy_url "tags" "Rust" }}|{{ get_url "@/about.md#team" }}|{{ get_url "feed.xml" }}|`+
			`{{ len (get_taxonomy "tags").Items }}`)
	store := output.NewMemoryStore()
	s := loadSite(t, root, config.ModeServe, WithMemoryStore(store))
	_, err := s.Build(context.Background())
	require.NoError(t, err)

	page, ok := store.Lookup("/about/")
	require.True(t, ok)
	require.Equal(t,
		"Post 2|Blog|https://example.com/tags/rust/|https://example.com/about/#team|https://example.com/feed.xml|1",
		string(page))
}

func TestAliasTarget(t *testing.T) {
	components, file := aliasTarget("/old/path/")
	require.Equal(t, []string{"old", "path"}, components)
	require.Equal(t, output.IndexFile, file)

	components, file = aliasTarget("legacy/page.html")
	require.Equal(t, []string{"legacy"}, components)
	require.Equal(t, "page.html", file)
}

func TestPageTemplate_InheritsFromAncestors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.yaml", baseConfig)
	writeFile(t, root, "content/docs/_index.md", "---\npage_template: doc.html\n---\n")
	writeFile(t, root, "content/docs/a.md", "---\ntitle: A\n---\n")
	writeFile(t, root, "content/docs/b.md", "---\ntitle: B\ntemplate: special.html\n---\n")

	s := loadSite(t, root, config.ModeBuild)
	s.WithLibrary(func(lib *library.Library) {
		a, _ := lib.PageByRelative("docs/a.md")
		b, _ := lib.PageByRelative("docs/b.md")
		require.Equal(t, "doc.html", s.pageTemplate(a))
		require.Equal(t, "special.html", s.pageTemplate(b))
	})
	require.Equal(t, "index.html", sectionTemplate(&content.Section{}))
}
