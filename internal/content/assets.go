package content

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// FindRelatedAssets lists non-markdown files in dir. Only bundle pages look
// into subdirectories; sections only own files next to their _index.md.
func FindRelatedAssets(dir, contentDir string, cfg *config.Config, recursive bool) ([]string, error) {
	var assets []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(contentDir, p)
		if relErr == nil && cfg.IsIgnored(rel) {
			return nil
		}
		assets = append(assets, p)
		return nil
	})
	sort.Strings(assets)
	return assets, err
}
