// Package linkcheck validates links found in rendered documents. Internal
// `@/` references are checked against the rendered headings of their
// targets; external URLs are requested over HTTP in check mode.
package linkcheck

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
)

// Diagnostic describes one broken link.
type Diagnostic struct {
	// Source is the identity of the document containing the link.
	Source string
	Target string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s -> %s: %s", d.Source, d.Target, d.Reason)
}

// CheckInternal verifies that every `@/path#anchor` reference points at a
// heading the target actually rendered. Unresolvable paths were already
// rejected by the markdown pass.
func CheckInternal(lib *library.Library) []Diagnostic {
	var out []Diagnostic
	check := func(source string, links []content.InternalLink) {
		for _, link := range links {
			if link.Anchor == "" {
				continue
			}
			target := link.Target + "#" + link.Anchor
			if p, ok := lib.PageByRelative(link.Target); ok {
				if !p.HasAnchor(link.Anchor) {
					out = append(out, Diagnostic{Source: source, Target: target, Reason: "anchor not found"})
				}
				continue
			}
			if s, ok := lib.SectionByRelative(link.Target); ok {
				if !s.HasAnchor(link.Anchor) {
					out = append(out, Diagnostic{Source: source, Target: target, Reason: "anchor not found"})
				}
				continue
			}
			out = append(out, Diagnostic{Source: source, Target: target, Reason: "target not found"})
		}
	}
	for _, p := range lib.Pages() {
		check(p.File.Path, p.InternalLinks)
	}
	for _, s := range lib.Sections() {
		check(s.File.Path, s.InternalLinks)
	}
	sortDiagnostics(out)
	return out
}

// Error folds diagnostics into one classified link error, or nil.
func Error(diags []Diagnostic, external bool) error {
	if len(diags) == 0 {
		return nil
	}
	kind := "internal"
	if external {
		kind = "external"
	}
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.String())
	}
	b := foundation.LinkError(fmt.Sprintf("found %d broken %s link(s):\n%s", len(diags), kind, strings.Join(lines, "\n"))).
		WithContext("count", len(diags))
	if len(diags) == 1 {
		b = b.WithContext("path", diags[0].Source).WithContext("target", diags[0].Target)
	}
	return b.Build()
}

func sortDiagnostics(diags []Diagnostic) {
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Source != diags[j].Source {
			return diags[i].Source < diags[j].Source
		}
		return diags[i].Target < diags[j].Target
	})
}
