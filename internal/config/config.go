package config

import (
	"path/filepath"
	"slices"
)

// BuildMode selects how a build materializes its output.
type BuildMode string

const (
	// ModeBuild writes the output tree to disk.
	ModeBuild BuildMode = "build"
	// ModeServe renders into an in-memory store for the preview server.
	ModeServe BuildMode = "serve"
	// ModeCheck loads and validates the site without writing anything.
	ModeCheck BuildMode = "check"
)

// InsertAnchor controls where heading anchor links are inserted.
type InsertAnchor string

const (
	InsertAnchorNone  InsertAnchor = "none"
	InsertAnchorLeft  InsertAnchor = "left"
	InsertAnchorRight InsertAnchor = "right"
)

// Config is the site configuration decoded from config.yaml.
type Config struct {
	BaseURL         string           `yaml:"base_url"`
	Title           string           `yaml:"title"`
	Description     string           `yaml:"description"`
	DefaultLanguage string           `yaml:"default_language"`
	Languages       []Language       `yaml:"languages"`
	Taxonomies      []TaxonomyConfig `yaml:"taxonomies"`

	GenerateFeed bool   `yaml:"generate_feed"`
	FeedFilename string `yaml:"feed_filename"`
	FeedLimit    int    `yaml:"feed_limit"`

	BuildSearchIndex bool `yaml:"build_search_index"`
	// SearchCheckAllLanguages extends the root-section search flag check to
	// every language instead of only the default one.
	SearchCheckAllLanguages bool `yaml:"search_check_all_languages"`

	MinifyHTML     bool     `yaml:"minify_html"`
	CompileSass    bool     `yaml:"compile_sass"`
	SassCommand    string   `yaml:"sass_command"`
	Theme          string   `yaml:"theme"`
	HardLinkStatic bool     `yaml:"hard_link_static"`
	IgnoredContent []string `yaml:"ignored_content"`

	Markdown  MarkdownConfig  `yaml:"markdown"`
	LinkCheck LinkCheckConfig `yaml:"link_check"`

	Workers           int  `yaml:"workers"`
	SitemapGitLastmod bool `yaml:"sitemap_git_lastmod"`

	Extra map[string]any `yaml:"extra"`

	// Mode and Paths are set by the loader and the CLI, never by the file.
	Mode  BuildMode `yaml:"-"`
	Paths Paths     `yaml:"-"`
}

// Language configures a non-default language.
type Language struct {
	Code   string `yaml:"code"`
	Feed   bool   `yaml:"feed"`
	Search bool   `yaml:"search"`
}

// TaxonomyConfig declares a taxonomy dimension for one language.
type TaxonomyConfig struct {
	Name         string `yaml:"name"`
	Lang         string `yaml:"lang"`
	PaginateBy   int    `yaml:"paginate_by"`
	PaginatePath string `yaml:"paginate_path"`
	Feed         bool   `yaml:"feed"`
}

// IsPaginated reports whether term listings are split into pagers.
func (t TaxonomyConfig) IsPaginated() bool {
	return t.PaginateBy > 0
}

// MarkdownConfig tunes the markdown renderer.
type MarkdownConfig struct {
	HighlightCode            bool   `yaml:"highlight_code"`
	HighlightTheme           string `yaml:"highlight_theme"`
	ExternalLinksTargetBlank bool   `yaml:"external_links_target_blank"`
	SmartPunctuation         bool   `yaml:"smart_punctuation"`
}

// LinkCheckConfig tunes external link checking.
type LinkCheckConfig struct {
	CheckExternal bool             `yaml:"check_external"`
	SkipPrefixes  []string         `yaml:"skip_prefixes"`
	Timeout       string           `yaml:"timeout"`
	MaxRetries    int              `yaml:"max_retries"`
	RetryBackoff  RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitial  string           `yaml:"retry_initial_delay"`
	RetryMax      string           `yaml:"retry_max_delay"`
	Concurrency   int              `yaml:"concurrency"`
}

// Paths locates the site's source and output directories.
type Paths struct {
	Root      string
	Content   string
	Output    string
	Static    string
	Templates string
	Sass      string
	Themes    string
}

// ThemeDir returns the active theme's directory, or "" without a theme.
func (c *Config) ThemeDir() string {
	if c.Theme == "" {
		return ""
	}
	return filepath.Join(c.Paths.Themes, c.Theme)
}

// IsMultilingual reports whether languages beyond the default are configured.
func (c *Config) IsMultilingual() bool {
	return len(c.Languages) > 0
}

// LanguageCodes returns every configured language code, default first.
func (c *Config) LanguageCodes() []string {
	codes := []string{c.DefaultLanguage}
	for _, l := range c.Languages {
		codes = append(codes, l.Code)
	}
	return codes
}

// HasLanguage reports whether code is a configured language.
func (c *Config) HasLanguage(code string) bool {
	return slices.Contains(c.LanguageCodes(), code)
}

// SearchLanguages returns languages for which a search index is built.
func (c *Config) SearchLanguages() []string {
	var out []string
	if c.BuildSearchIndex {
		out = append(out, c.DefaultLanguage)
	}
	for _, l := range c.Languages {
		if l.Search {
			out = append(out, l.Code)
		}
	}
	return out
}

// FeedLanguages returns non-default languages that opt into their own feed.
func (c *Config) FeedLanguages() []string {
	var out []string
	for _, l := range c.Languages {
		if l.Feed {
			out = append(out, l.Code)
		}
	}
	return out
}

// TaxonomiesFor returns the taxonomy dimensions declared for lang.
func (c *Config) TaxonomiesFor(lang string) []TaxonomyConfig {
	var out []TaxonomyConfig
	for _, t := range c.Taxonomies {
		if t.Lang == lang {
			out = append(out, t)
		}
	}
	return out
}

// IsIgnored reports whether a content-relative path matches an ignored_content glob.
func (c *Config) IsIgnored(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, pattern := range c.IgnoredContent {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
