package content

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// FileInfo describes where a document lives in the content tree.
type FileInfo struct {
	// Path is the absolute source path and the document identity.
	Path string
	// Relative is Path relative to the content directory, slash separated.
	Relative string
	// Parent is the directory owning the document. For a bundle page
	// (dir/index.md) it is the directory above the bundle.
	Parent string
	// GrandParent is the directory above a section's own directory.
	GrandParent string
	Filename    string
	// Name is the filename without extension and language suffix. For a
	// bundle page it is the bundle directory name.
	Name string
	// Components are the content-relative directories leading to the document.
	Components []string
	// BundleDir is set for dir/index.md pages; co-located files are its assets.
	BundleDir string
	// Canonical identifies the document independent of language.
	Canonical string
}

// NewFileInfo builds the FileInfo for path and detects its language.
func NewFileInfo(contentDir, path string, kind Kind, cfg *config.Config) (FileInfo, string, error) {
	path = filepath.Clean(path)
	rel, err := filepath.Rel(contentDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	fi := FileInfo{
		Path:     path,
		Relative: filepath.ToSlash(rel),
		Parent:   filepath.Dir(path),
		Filename: filepath.Base(path),
	}
	fi.Name = strings.TrimSuffix(fi.Filename, filepath.Ext(fi.Filename))

	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir != "." {
		fi.Components = strings.Split(dir, "/")
	}

	// Without extra languages a dotted name like v1.2-release is just a name.
	lang := cfg.DefaultLanguage
	if i := strings.LastIndexByte(fi.Name, '.'); i >= 0 && cfg.IsMultilingual() {
		code := fi.Name[i+1:]
		if !cfg.HasLanguage(code) {
			return fi, "", foundation.ContentError("file has an unknown language suffix").
				WithContext("path", path).WithContext("lang", code).Build()
		}
		lang = code
		fi.Name = fi.Name[:i]
	}

	switch kind {
	case KindSection:
		fi.GrandParent = filepath.Dir(fi.Parent)
		fi.Canonical = filepath.Join(fi.Parent, "_index")
	default:
		if fi.Name == "index" && len(fi.Components) > 0 {
			fi.BundleDir = fi.Parent
			fi.Name = fi.Components[len(fi.Components)-1]
			fi.Components = fi.Components[:len(fi.Components)-1]
			fi.Parent = filepath.Dir(fi.Parent)
		}
		fi.Canonical = filepath.Join(fi.Parent, fi.Name)
	}
	return fi, lang, nil
}

// SectionIndexPath returns the identity of the index section for dir in lang.
func SectionIndexPath(dir, lang string, cfg *config.Config) string {
	if lang == cfg.DefaultLanguage {
		return filepath.Join(dir, "_index.md")
	}
	return filepath.Join(dir, "_index."+lang+".md")
}
