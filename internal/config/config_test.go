package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func writeSite(t *testing.T, cfg string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFilename), []byte(cfg), 0o600))
	return root
}

func TestLoad_AppliesDefaults(t *testing.T) {
	root := writeSite(t, "base_url: https://example.com\ntaxonomies:\n  - name: tags\n")

	cfg, err := Load(root, "", ModeBuild)
	require.NoError(t, err)
	require.Equal(t, "en", cfg.DefaultLanguage)
	require.Equal(t, "rss.xml", cfg.FeedFilename)
	require.Equal(t, "en", cfg.Taxonomies[0].Lang)
	require.Equal(t, "page", cfg.Taxonomies[0].PaginatePath)
	require.Equal(t, RetryBackoffExponential, cfg.LinkCheck.RetryBackoff)
	require.Positive(t, cfg.Workers)
	require.Equal(t, filepath.Join(cfg.Paths.Root, "content"), cfg.Paths.Content)
	require.Equal(t, ModeBuild, cfg.Mode)
}

func TestLoad_ExpandsEnvFromDotEnv(t *testing.T) {
	root := writeSite(t, "base_url: ${SITEBUILDER_TEST_BASE}\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SITEBUILDER_TEST_BASE=https://env.example\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SITEBUILDER_TEST_BASE") })

	cfg, err := Load(root, "", ModeBuild)
	require.NoError(t, err)
	require.Equal(t, "https://env.example", cfg.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "", ModeBuild)
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryConfig))
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("base_url: https://x\nbase_ulr: typo\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing base url", "title: x\n"},
		{"duplicate language", "base_url: https://x\nlanguages:\n  - code: fr\n  - code: fr\n"},
		{"taxonomy unknown language", "base_url: https://x\ntaxonomies:\n  - name: tags\n    lang: de\n"},
		{"bad duration", "base_url: https://x\nlink_check:\n  timeout: soon\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.yaml))
			require.NoError(t, err)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestMakePermalink(t *testing.T) {
	cfg := &Config{BaseURL: "https://example.com/", FeedFilename: "rss.xml"}
	cases := map[string]string{
		"":                  "https://example.com/",
		"/":                 "https://example.com/",
		"/blog/":            "https://example.com/blog/",
		"blog/post":         "https://example.com/blog/post/",
		"/rss.xml":          "https://example.com/rss.xml",
		"tags/rust/rss.xml": "https://example.com/tags/rust/rss.xml",
		"sitemap1.xml":      "https://example.com/sitemap1.xml",
	}
	for in, want := range cases {
		require.Equal(t, want, cfg.MakePermalink(in), in)
	}
}

func TestLanguageHelpers(t *testing.T) {
	cfg, err := Parse([]byte(`base_url: https://x
build_search_index: true
languages:
  - code: fr
    feed: true
    search: true
  - code: de
taxonomies:
  - name: tags
  - name: tags
    lang: fr
`))
	require.NoError(t, err)
	require.True(t, cfg.IsMultilingual())
	require.Equal(t, []string{"en", "fr", "de"}, cfg.LanguageCodes())
	require.Equal(t, []string{"en", "fr"}, cfg.SearchLanguages())
	require.Equal(t, []string{"fr"}, cfg.FeedLanguages())
	require.Len(t, cfg.TaxonomiesFor("fr"), 1)
	require.Empty(t, cfg.TaxonomiesFor("de"))
	require.Equal(t, "", cfg.LanguagePrefix("en"))
	require.Equal(t, "fr", cfg.LanguagePrefix("fr"))
}

func TestIsIgnored(t *testing.T) {
	cfg := &Config{IgnoredContent: []string{"*.psd", "drafts/*"}}
	require.True(t, cfg.IsIgnored("blog/cover.psd"))
	require.True(t, cfg.IsIgnored("drafts/wip.md"))
	require.False(t, cfg.IsIgnored("blog/post.md"))
}
