package library

import (
	"sort"
	"strings"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Collision is a set of documents resolving to the same output path.
type Collision struct {
	Path    string
	Sources []string
}

// DetectCollisions groups every page and rendered section by output path
// and returns the groups with more than one member. Aliases are grouped
// separately: two documents claiming the same alias collide, while an
// alias landing on a real document loses to it and is not reported.
func (l *Library) DetectCollisions() []Collision {
	byPath := make(map[string][]string)
	byAlias := make(map[string]sets.Set[string])
	addAliases := func(source string, aliases []string) {
		for _, alias := range aliases {
			key := AliasPath(alias)
			if byAlias[key] == nil {
				byAlias[key] = sets.New[string]()
			}
			byAlias[key].Add(source)
		}
	}
	for _, p := range l.pages {
		byPath[p.Path] = append(byPath[p.Path], p.File.Path)
		addAliases(p.File.Path, p.Meta.Aliases)
	}
	for _, s := range l.sections {
		addAliases(s.File.Path, s.Meta.Aliases)
		if !s.Meta.Render {
			continue
		}
		byPath[s.Path] = append(byPath[s.Path], s.File.Path)
	}

	var out []Collision
	for path, sources := range byPath {
		if len(sources) < 2 {
			continue
		}
		sort.Strings(sources)
		out = append(out, Collision{Path: path, Sources: sources})
	}
	for path, sources := range byAlias {
		if len(sources) < 2 {
			continue
		}
		if _, taken := byPath[path]; taken {
			continue
		}
		out = append(out, Collision{Path: path, Sources: sets.Sorted(sources)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// AliasPath normalizes an alias to the output path form used by documents:
// "old/" and "/old" both become "/old/", while "legacy/a.html" keeps its
// file name as "/legacy/a.html".
func AliasPath(alias string) string {
	var components []string
	for _, c := range strings.Split(strings.Trim(alias, "/"), "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	if len(components) == 0 {
		return "/"
	}
	joined := "/" + strings.Join(components, "/")
	if strings.HasSuffix(joined, ".html") {
		return joined
	}
	return joined + "/"
}

// CollisionError builds the fatal graph error reported for collisions.
func CollisionError(collisions []Collision) error {
	if len(collisions) == 0 {
		return nil
	}
	var b strings.Builder
	for _, c := range collisions {
		b.WriteString("\n  ")
		b.WriteString(c.Path)
		b.WriteString(": ")
		b.WriteString(strings.Join(c.Sources, ", "))
	}
	return foundation.GraphError("found path collisions:"+b.String()).
		WithContext("count", len(collisions)).
		Build()
}
