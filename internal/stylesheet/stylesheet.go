// Package stylesheet turns a sass/ directory into CSS files. Plain .css
// files are minified in-process; .scss and .sass files are handed to an
// external compiler binary whose output is minified the same way.
package stylesheet

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Stylesheet is one compiled file, addressed relative to the output root.
type Stylesheet struct {
	Components []string
	Filename   string
	Content    []byte
}

// Compiler compiles every stylesheet below a source directory.
type Compiler struct {
	command string
	m       *minify.M
}

// NewCompiler returns a Compiler that shells out to command for sass sources.
func NewCompiler(command string) *Compiler {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	return &Compiler{command: command, m: m}
}

// Compile walks srcDir. Files whose name starts with "_" are partials and
// produce no output. A missing srcDir yields nothing.
func (c *Compiler) Compile(ctx context.Context, srcDir string) ([]Stylesheet, error) {
	var sources []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), "_") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".css", ".scss", ".sass":
			sources = append(sources, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryFileSystem, "walk stylesheet directory").
			WithContext("path", srcDir).Build()
	}
	sort.Strings(sources)

	out := make([]Stylesheet, 0, len(sources))
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		rel, err := filepath.Rel(srcDir, src)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)) + ".css")
		if prev, dup := seen[rel]; dup {
			return nil, foundation.NewError(foundation.CategoryOutput, "stylesheets compile to the same file").
				WithContext("path", rel).
				WithContext("first", prev).
				WithContext("second", src).
				Fatal().Build()
		}
		seen[rel] = src

		raw, err := c.compileOne(ctx, src)
		if err != nil {
			return nil, err
		}
		minified, err := c.m.Bytes("text/css", raw)
		if err != nil {
			return nil, foundation.WrapError(err, foundation.CategoryOutput, "minify stylesheet").
				WithContext("path", src).Build()
		}
		dir, file := filepath.Split(rel)
		var components []string
		if dir = strings.Trim(dir, "/"); dir != "" {
			components = strings.Split(dir, "/")
		}
		out = append(out, Stylesheet{Components: components, Filename: file, Content: minified})
	}
	return out, nil
}

func (c *Compiler) compileOne(ctx context.Context, src string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(src), ".css") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, foundation.WrapError(err, foundation.CategoryFileSystem, "read stylesheet").
				WithContext("path", src).Build()
		}
		return data, nil
	}

	if _, err := exec.LookPath(c.command); err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "sass compiler not found").
			WithContext("command", c.command).UserAction().Build()
	}
	// #nosec G204 -- the command comes from the site configuration
	cmd := exec.CommandContext(ctx, c.command, "--no-source-map", src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Compiling stylesheet", "command", c.command, "path", src)
	if err := cmd.Run(); err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryContent, "sass compilation failed").
			WithContext("path", src).
			WithContext("stderr", strings.TrimSpace(stderr.String())).
			Fatal().Build()
	}
	return stdout.Bytes(), nil
}
