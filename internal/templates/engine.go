// Package templates renders site documents with html/template. Built-in
// defaults are embedded; a theme's templates/ directory overrides them and the
// site's templates/ directory overrides both.
package templates

import (
	"bytes"
	"embed"
	"errors"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

//go:embed builtins/*
var builtinFS embed.FS

// Engine holds the parsed template set. Render is safe for concurrent use;
// Reload swaps in a freshly parsed set.
type Engine struct {
	mu    sync.RWMutex
	dirs  []string
	funcs map[string]any
	html  *htmltemplate.Template
	text  *texttemplate.Template
}

// New parses the built-in templates followed by every existing dir in order.
func New(dirs []string, funcs map[string]any) (*Engine, error) {
	e := &Engine{dirs: dirs, funcs: funcs}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload re-reads every template source.
func (e *Engine) Reload() error {
	funcs := builtinFuncs()
	for k, v := range e.funcs {
		funcs[k] = v
	}
	html := htmltemplate.New("").Funcs(funcs)
	text := texttemplate.New("").Funcs(funcs)

	sub, err := fs.Sub(builtinFS, "builtins")
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryInternal, "open built-in templates").Fatal().Build()
	}
	if err := parseTree(sub, html, text); err != nil {
		return err
	}
	for _, dir := range e.dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := parseTree(os.DirFS(dir), html, text); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.html, e.text = html, text
	e.mu.Unlock()
	return nil
}

func parseTree(fsys fs.FS, html *htmltemplate.Template, text *texttemplate.Template) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		var parse func(string) error
		switch path.Ext(p) {
		case ".html":
			parse = func(src string) error { _, err := html.New(p).Parse(src); return err }
		case ".txt", ".xml":
			parse = func(src string) error { _, err := text.New(p).Parse(src); return err }
		default:
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := parse(string(src)); err != nil {
			return foundation.WrapError(err, foundation.CategoryTemplate, "invalid template").
				WithContext("template", p).Fatal().Build()
		}
		return nil
	})
}

// Has reports whether a template with name is defined.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if isText(name) {
		return e.text.Lookup(name) != nil
	}
	return e.html.Lookup(name) != nil
}

// Render executes the named template with data.
func (e *Engine) Render(name string, data any) (string, error) {
	e.mu.RLock()
	html, text := e.html, e.text
	e.mu.RUnlock()

	var (
		buf bytes.Buffer
		err error
	)
	switch {
	case isText(name) && text.Lookup(name) != nil:
		err = text.ExecuteTemplate(&buf, name, data)
	case !isText(name) && html.Lookup(name) != nil:
		err = html.ExecuteTemplate(&buf, name, data)
	default:
		return "", notFound(name)
	}
	if err != nil {
		return "", foundation.WrapError(err, foundation.CategoryTemplate, "render template").
			WithContext("template", name).Fatal().Build()
	}
	return buf.String(), nil
}

// RenderFirst renders the first defined template among names.
func (e *Engine) RenderFirst(names []string, data any) (string, error) {
	for _, name := range names {
		if name != "" && e.Has(name) {
			return e.Render(name, data)
		}
	}
	return "", notFound(strings.Join(names, ", "))
}

func notFound(name string) error {
	return foundation.TemplateError("template not found").WithContext("template", name).Build()
}

func isText(name string) bool {
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".xml")
}
