package config

import "runtime"

const (
	defaultLanguage     = "en"
	defaultFeedFilename = "rss.xml"
	defaultPaginatePath = "page"
	defaultSassCommand  = "sass"
)

func applyDefaults(cfg *Config) {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = defaultLanguage
	}
	if cfg.FeedFilename == "" {
		cfg.FeedFilename = defaultFeedFilename
	}
	if cfg.SassCommand == "" {
		cfg.SassCommand = defaultSassCommand
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Extra == nil {
		cfg.Extra = map[string]any{}
	}
	for i := range cfg.Taxonomies {
		t := &cfg.Taxonomies[i]
		if t.Lang == "" {
			t.Lang = cfg.DefaultLanguage
		}
		if t.PaginatePath == "" {
			t.PaginatePath = defaultPaginatePath
		}
	}
	if cfg.Markdown.HighlightTheme == "" {
		cfg.Markdown.HighlightTheme = "github"
	}
	lc := &cfg.LinkCheck
	if lc.Timeout == "" {
		lc.Timeout = "10s"
	}
	if lc.Concurrency <= 0 {
		lc.Concurrency = 8
	}
	if lc.MaxRetries == 0 {
		lc.MaxRetries = 2
	}
	lc.RetryBackoff = NormalizeRetryBackoff(string(lc.RetryBackoff))
	if lc.RetryBackoff == "" {
		lc.RetryBackoff = RetryBackoffExponential
	}
	if lc.RetryInitial == "" {
		lc.RetryInitial = "500ms"
	}
	if lc.RetryMax == "" {
		lc.RetryMax = "5s"
	}
}
