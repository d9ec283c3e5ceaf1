package content

import (
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// ParseFile reads path from disk, parses it and collects co-located assets.
func ParseFile(contentDir, path string, cfg *config.Config) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, foundation.WrapError(err, foundation.CategoryContent, "read document").
			WithContext("path", path).Fatal().Build()
	}
	doc, err := Parse(contentDir, path, raw, cfg)
	if err != nil {
		return Document{}, err
	}

	switch doc.Kind {
	case KindSection:
		doc.Section.Assets, err = FindRelatedAssets(doc.Section.File.Parent, contentDir, cfg, false)
	default:
		if doc.Page.File.BundleDir != "" {
			doc.Page.Assets, err = FindRelatedAssets(doc.Page.File.BundleDir, contentDir, cfg, true)
		}
	}
	if err != nil {
		return Document{}, foundation.WrapError(err, foundation.CategoryContent, "list document assets").
			WithContext("path", path).Fatal().Build()
	}
	return doc, nil
}

// Parse turns raw source bytes into a Page or Section. It performs no I/O
// and no cross-document lookups.
func Parse(contentDir, path string, raw []byte, cfg *config.Config) (Document, error) {
	kind := KindOf(filepath.Base(path))
	file, lang, err := NewFileInfo(contentDir, path, kind, cfg)
	if err != nil {
		return Document{}, err
	}

	fm, body, _, _, err := frontmatter.Split(raw)
	if err != nil {
		return Document{}, foundation.WrapError(err, foundation.CategoryContent, "malformed front matter").
			WithContext("path", path).Fatal().UserAction().Build()
	}

	if kind == KindSection {
		s, err := newSection(file, lang, fm, string(body), cfg)
		if err != nil {
			return Document{}, err
		}
		return Document{Kind: KindSection, Section: s}, nil
	}
	p, err := newPage(file, lang, fm, string(body), cfg)
	if err != nil {
		return Document{}, err
	}
	return Document{Kind: KindPage, Page: p}, nil
}

func newPage(file FileInfo, lang string, fm []byte, body string, cfg *config.Config) (*Page, error) {
	meta := DefaultPageFrontMatter()
	if err := frontmatter.Decode(fm, &meta); err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryContent, "invalid page front matter").
			WithContext("path", file.Path).Fatal().UserAction().Build()
	}

	p := &Page{File: file, Lang: lang, Meta: meta, RawContent: body}
	p.Slug = meta.Slug
	if p.Slug == "" {
		p.Slug = Slugify(file.Name)
	}

	var parts []string
	if prefix := cfg.LanguagePrefix(lang); prefix != "" {
		parts = append(parts, prefix)
	}
	if meta.Path != "" {
		parts = append(parts, strings.Trim(meta.Path, "/"))
	} else {
		parts = append(parts, file.Components...)
		parts = append(parts, p.Slug)
	}
	p.Path = joinURLPath(parts)
	p.Permalink = cfg.MakePermalink(p.Path)
	return p, nil
}

func newSection(file FileInfo, lang string, fm []byte, body string, cfg *config.Config) (*Section, error) {
	meta := DefaultSectionFrontMatter()
	if err := frontmatter.Decode(fm, &meta); err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryContent, "invalid section front matter").
			WithContext("path", file.Path).Fatal().UserAction().Build()
	}
	if err := validateSectionMeta(meta); err != nil {
		return nil, err.WithContext("path", file.Path).Build()
	}

	s := &Section{File: file, Lang: lang, Meta: meta, RawContent: body}
	var parts []string
	if prefix := cfg.LanguagePrefix(lang); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, file.Components...)
	s.Path = joinURLPath(parts)
	s.Permalink = cfg.MakePermalink(s.Path)
	return s, nil
}

// NewDefaultSection synthesizes an empty root section for lang.
func NewDefaultSection(contentDir, lang string, cfg *config.Config) *Section {
	path := SectionIndexPath(contentDir, lang, cfg)
	file := FileInfo{
		Path:        path,
		Relative:    filepath.Base(path),
		Parent:      contentDir,
		GrandParent: filepath.Dir(contentDir),
		Filename:    filepath.Base(path),
		Name:        "_index",
		Canonical:   filepath.Join(contentDir, "_index"),
	}
	s := &Section{File: file, Lang: lang, Meta: DefaultSectionFrontMatter()}
	s.Path = joinURLPath([]string{cfg.LanguagePrefix(lang)})
	s.Permalink = cfg.MakePermalink(s.Path)
	return s
}

func validateSectionMeta(meta SectionFrontMatter) *foundation.ErrorBuilder {
	switch meta.SortBy {
	case SortByNone, SortByDate, SortByWeight, SortByTitle:
	default:
		return foundation.ContentError("unknown sort_by value").WithContext("sort_by", string(meta.SortBy))
	}
	switch meta.InsertAnchorLinks {
	case config.InsertAnchorNone, config.InsertAnchorLeft, config.InsertAnchorRight:
	default:
		return foundation.ContentError("unknown insert_anchor_links value").
			WithContext("insert_anchor_links", string(meta.InsertAnchorLinks))
	}
	if meta.PaginateBy < 0 {
		return foundation.ContentError("paginate_by must not be negative")
	}
	return nil
}

func joinURLPath(parts []string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return "/" + strings.Join(kept, "/") + "/"
}
