package library

import (
	"path/filepath"
	"slices"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// PopulateSections links every section to its child pages and subsections,
// computes ancestor chains and page translations, and sorts child pages.
// It recomputes all derived state from scratch, so running it twice on an
// unchanged library yields the same result.
func (l *Library) PopulateSections() {
	sections := l.Sections()
	for _, s := range sections {
		s.ResetChildren()
	}

	for _, s := range sections {
		s.Ancestors = l.sectionAncestors(s)
		if s.IsIndex() {
			continue
		}
		parentID := content.SectionIndexPath(s.File.GrandParent, s.Lang, l.cfg)
		if parent, ok := l.sections[parentID]; ok {
			parent.Subsections = append(parent.Subsections, s.File.Path)
		}
	}

	owned := make(map[string][]*content.Page)
	for _, p := range l.Pages() {
		p.Ancestors = nil
		parent, ok := l.ParentSection(p)
		if !ok {
			continue
		}
		owned[parent.File.Path] = append(owned[parent.File.Path], p)
		p.Ancestors = append(slices.Clone(parent.Ancestors), parent.File.Path)
	}

	// Transparent sections also hand their direct pages to every ancestor up
	// to the first non-transparent one.
	direct := make(map[string][]*content.Page, len(owned))
	for id, pages := range owned {
		direct[id] = slices.Clone(pages)
	}
	for _, s := range sections {
		if !s.Meta.Transparent {
			continue
		}
		for i := len(s.Ancestors) - 1; i >= 0; i-- {
			ancestor := l.sections[s.Ancestors[i]]
			owned[ancestor.File.Path] = append(owned[ancestor.File.Path], direct[s.File.Path]...)
			if !ancestor.Meta.Transparent {
				break
			}
		}
	}

	for _, s := range sections {
		s.Pages, s.IgnoredPages = content.SortPages(owned[s.File.Path], s.Meta.SortBy)
		l.sortSubsections(s)
	}

	l.linkTranslations()
}

// sectionAncestors walks from the content root down to the section's parent
// directory, recording each directory that owns a section in s.Lang.
func (l *Library) sectionAncestors(s *content.Section) []string {
	if s.IsIndex() {
		return nil
	}
	var chain []string
	dir := l.cfg.Paths.Content
	if id := content.SectionIndexPath(dir, s.Lang, l.cfg); l.sections[id] != nil {
		chain = append(chain, id)
	}
	for _, c := range s.File.Components[:len(s.File.Components)-1] {
		dir = filepath.Join(dir, c)
		if id := content.SectionIndexPath(dir, s.Lang, l.cfg); l.sections[id] != nil {
			chain = append(chain, id)
		}
	}
	return chain
}

func (l *Library) sortSubsections(s *content.Section) {
	sort.SliceStable(s.Subsections, func(i, j int) bool {
		a, b := l.sections[s.Subsections[i]], l.sections[s.Subsections[j]]
		if a.Meta.Weight != b.Meta.Weight {
			return a.Meta.Weight < b.Meta.Weight
		}
		return a.File.Path < b.File.Path
	})
}

func (l *Library) linkTranslations() {
	groups := make(map[string][]string)
	for _, p := range l.Pages() {
		groups[p.File.Canonical] = append(groups[p.File.Canonical], p.File.Path)
	}
	for _, p := range l.pages {
		p.Translations = nil
		for _, id := range groups[p.File.Canonical] {
			if id != p.File.Path {
				p.Translations = append(p.Translations, id)
			}
		}
	}
}
