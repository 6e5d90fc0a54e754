package pathmap

import (
	"sort"
	"strings"
)

type sectionRoot struct {
	root    string
	section string
}

// SectionMap resolves a mapped library path to an opaque section identifier
// via the same longest-prefix-wins rule as Table.
type SectionMap struct {
	roots []sectionRoot
}

// NewSectionMap builds a section map from libraryRoot->sectionID pairs.
func NewSectionMap(pairs map[string]string) *SectionMap {
	roots := make([]sectionRoot, 0, len(pairs))
	for root, section := range pairs {
		normalized := strings.ToLower(Normalize(root, false))
		if normalized == "" || strings.TrimSpace(section) == "" {
			continue
		}
		roots = append(roots, sectionRoot{root: normalized, section: strings.TrimSpace(section)})
	}
	sort.Slice(roots, func(i, j int) bool {
		if len(roots[i].root) != len(roots[j].root) {
			return len(roots[i].root) > len(roots[j].root)
		}
		return roots[i].root < roots[j].root
	})
	return &SectionMap{roots: roots}
}

// Len reports the number of configured section roots.
func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.roots)
}

// Resolve returns the section identifier for the longest root that prefixes
// the given path. A false result means the path is not a tracked library
// path; callers must not treat it as an error.
func (m *SectionMap) Resolve(libraryPath string) (string, bool) {
	if m == nil {
		return "", false
	}
	comparison := strings.ToLower(Normalize(libraryPath, false))
	if comparison == "" {
		return "", false
	}
	for _, r := range m.roots {
		if strings.HasPrefix(comparison, r.root) {
			return r.section, true
		}
	}
	return "", false
}
