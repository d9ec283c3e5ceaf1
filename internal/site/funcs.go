package site

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/imageproc"
)

// templateFuncs exposes library lookups to templates. They run inside a
// render, which already holds the read lock, so they never lock.
func (s *Site) templateFuncs() map[string]any {
	return map[string]any{
		"get_page":         s.getPage,
		"get_section":      s.getSection,
		"get_taxonomy":     s.getTaxonomy,
		"get_taxonomy_url": s.getTaxonomyURL,
		"get_url":          s.getURL,
		"resize_image":     s.resizeImage,
	}
}

func (s *Site) getPage(rel string) (*content.Page, error) {
	if p, ok := s.lib.PageByRelative(strings.TrimPrefix(rel, "@/")); ok {
		return p, nil
	}
	return nil, foundation.TemplateError("get_page: page not found").WithContext("path", rel).Build()
}

func (s *Site) getSection(rel string) (*content.Section, error) {
	if sec, ok := s.lib.SectionByRelative(strings.TrimPrefix(rel, "@/")); ok {
		return sec, nil
	}
	return nil, foundation.TemplateError("get_section: section not found").WithContext("path", rel).Build()
}

func (s *Site) langOrDefault(lang []string) string {
	if len(lang) > 0 && lang[0] != "" {
		return lang[0]
	}
	return s.cfg.DefaultLanguage
}

func (s *Site) getTaxonomy(kind string, lang ...string) (taxonomyView, error) {
	code := s.langOrDefault(lang)
	t, ok := s.lib.Taxonomy(kind, code)
	if !ok {
		return taxonomyView{}, foundation.TemplateError("get_taxonomy: taxonomy not found").
			WithContext("taxonomy", kind).WithContext("lang", code).Build()
	}
	return s.viewTaxonomy(t), nil
}

func (s *Site) getTaxonomyURL(kind, name string, lang ...string) (string, error) {
	code := s.langOrDefault(lang)
	t, ok := s.lib.Taxonomy(kind, code)
	if !ok {
		return "", foundation.TemplateError("get_taxonomy_url: taxonomy not found").
			WithContext("taxonomy", kind).WithContext("lang", code).Build()
	}
	term, ok := t.Term(content.Slugify(name))
	if !ok {
		return "", foundation.TemplateError("get_taxonomy_url: term not found").
			WithContext("taxonomy", kind).WithContext("term", name).Build()
	}
	return term.Permalink, nil
}

// getURL resolves `@/` references to permalinks; other paths are joined
// to the base URL.
func (s *Site) getURL(path string) (string, error) {
	if rel, ok := strings.CutPrefix(path, "@/"); ok {
		target, anchor, _ := strings.Cut(rel, "#")
		permalink, found := s.lib.Permalinks()[target]
		if !found {
			return "", foundation.TemplateError("get_url: unresolved internal link").WithContext("target", path).Build()
		}
		if anchor != "" {
			permalink += "#" + anchor
		}
		return permalink, nil
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	return s.cfg.MakePermalink(path), nil
}

// resizeImage queues a resize and returns the URL the result will have.
// path is looked up in the content tree, then the site's static tree, then
// the theme's.
func (s *Site) resizeImage(path string, width, height int, op string) (string, error) {
	src, err := s.findImage(path)
	if err != nil {
		return "", err
	}
	if op == "" {
		op = string(imageproc.ModeFill)
	}
	return s.images.Enqueue(imageproc.Op{Source: src, Width: width, Height: height, Mode: imageproc.Mode(op)})
}

func (s *Site) findImage(path string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(path, "/"))
	roots := []string{s.cfg.Paths.Content, s.cfg.Paths.Static}
	if theme := s.cfg.ThemeDir(); theme != "" {
		roots = append(roots, filepath.Join(theme, "static"))
	}
	for _, root := range roots {
		candidate := filepath.Join(root, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", foundation.WrapError(err, foundation.CategoryFileSystem, "stat image").WithContext("path", candidate).Build()
		}
	}
	return "", foundation.TemplateError("resize_image: image not found").WithContext("path", path).Build()
}
