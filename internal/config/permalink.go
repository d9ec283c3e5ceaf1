package config

import (
	"path"
	"strings"
)

// MakePermalink joins base_url and a URL path. Paths that name a directory
// get a trailing slash; paths that name a file (feed, sitemap, js) do not.
func (c *Config) MakePermalink(p string) string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return base + "/"
	}
	if !strings.HasSuffix(p, "/") && !isFileName(p, c.FeedFilename) {
		p += "/"
	}
	return base + "/" + p
}

// LanguagePrefix returns the URL path prefix for lang ("" for the default language).
func (c *Config) LanguagePrefix(lang string) string {
	if lang == "" || lang == c.DefaultLanguage {
		return ""
	}
	return lang
}

func isFileName(p, feedFilename string) bool {
	if feedFilename != "" && strings.HasSuffix(p, feedFilename) {
		return true
	}
	switch path.Ext(p) {
	case ".xml", ".html", ".js", ".txt", ".json", ".css":
		return true
	}
	return false
}
