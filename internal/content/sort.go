package content

import (
	"sort"
	"strings"
)

// SortPages orders pages by the given key and returns their identities.
// Pages lacking the key (no date, no weight, empty title) are returned
// separately in path order.
func SortPages(pages []*Page, by SortBy) (sorted []string, ignored []string) {
	var keep []*Page
	for _, p := range pages {
		if hasSortKey(p, by) {
			keep = append(keep, p)
		} else {
			ignored = append(ignored, p.File.Path)
		}
	}

	sort.SliceStable(keep, func(i, j int) bool {
		a, b := keep[i], keep[j]
		switch by {
		case SortByDate:
			if !a.Date().Equal(b.Date()) {
				return a.Date().After(b.Date())
			}
		case SortByWeight:
			if *a.Meta.Weight != *b.Meta.Weight {
				return *a.Meta.Weight < *b.Meta.Weight
			}
		case SortByTitle:
			ta, tb := strings.ToLower(a.Meta.Title), strings.ToLower(b.Meta.Title)
			if ta != tb {
				return ta < tb
			}
		}
		return a.Permalink < b.Permalink
	})

	sorted = make([]string, 0, len(keep))
	for _, p := range keep {
		sorted = append(sorted, p.File.Path)
	}
	sort.Strings(ignored)
	return sorted, ignored
}

func hasSortKey(p *Page, by SortBy) bool {
	switch by {
	case SortByDate:
		return p.Meta.Date != nil
	case SortByWeight:
		return p.Meta.Weight != nil
	case SortByTitle:
		return p.Meta.Title != ""
	default:
		return true
	}
}
