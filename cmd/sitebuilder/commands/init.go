package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Dir     string `arg:"" optional:"" default:"." help:"Directory to create the site in" type:"path"`
	BaseURL string `name:"base-url" default:"https://example.com" help:"base_url written to the configuration"`
	Title   string `name:"title" default:"My site" help:"Site title"`
	Force   bool   `help:"Initialize even if the directory is not empty"`
}

func (i *InitCmd) Run(_ *Global, _ *CLI) error {
	fmt.Printf("Creating site in %s\n", i.Dir)
	if err := RunInit(i.Dir, i.BaseURL, i.Title, i.Force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("Site initialized successfully")
	return nil
}

// RunInit scaffolds a site in dir: configuration, a home page and the
// conventional empty directories.
func RunInit(dir, baseURL, title string, force bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return foundation.WrapError(err, foundation.CategoryFileSystem, "read target directory").WithContext("path", dir).Build()
	case len(entries) > 0 && !force:
		return foundation.ValidationError("target directory is not empty").
			WithContext("path", dir).UserAction().Build()
	}

	cfg, err := frontmatter.SerializeYAML(map[string]any{
		"base_url":           baseURL,
		"title":              title,
		"generate_feed":      true,
		"build_search_index": false,
		"compile_sass":       false,
		"markdown":           map[string]any{"highlight_code": true},
		"taxonomies":         []any{map[string]any{"name": "tags", "feed": true}},
	}, frontmatter.Style{})
	if err != nil {
		return foundation.InternalError("serialize configuration").WithCause(err).Build()
	}
	home, err := frontmatter.SerializeYAML(map[string]any{"title": title}, frontmatter.Style{})
	if err != nil {
		return foundation.InternalError("serialize front matter").WithCause(err).Build()
	}

	files := map[string][]byte{
		"config.yaml":       cfg,
		"content/_index.md": frontmatter.Join(home, []byte("Welcome to "+title+".\n"), true, frontmatter.Style{}),
	}
	for _, d := range []string{"content", "static", "templates", "sass", "themes"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o750); err != nil {
			return foundation.WrapError(err, foundation.CategoryFileSystem, "create directory").WithContext("path", d).Build()
		}
	}
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return foundation.WrapError(err, foundation.CategoryFileSystem, "write file").WithContext("path", path).Build()
		}
	}
	return nil
}
