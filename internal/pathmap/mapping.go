package pathmap

import (
	"sort"
	"strings"
)

// Normalize trims a path, unifies separators to forward slashes, and strips
// the trailing separator. When dir is true a single trailing separator is
// re-appended so directory paths compare consistently.
func Normalize(path string, dir bool) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return ""
	}
	clean = strings.ReplaceAll(clean, "\\", "/")
	clean = strings.TrimRight(clean, "/")
	if dir && clean != "" {
		clean += "/"
	}
	return clean
}

type rule struct {
	source      string
	destination string
}

// Table is an ordered set of prefix substitution rules. Rule sources are
// stored lower-cased and file-normalized; lookups scan sources by descending
// length so the most specific prefix wins on overlap.
type Table struct {
	rules []rule
}

// NewTable builds a mapping table from source->destination prefix pairs.
func NewTable(pairs map[string]string) *Table {
	rules := make([]rule, 0, len(pairs))
	for source, destination := range pairs {
		normalized := strings.ToLower(Normalize(source, false))
		if normalized == "" {
			continue
		}
		rules = append(rules, rule{source: normalized, destination: Normalize(destination, false)})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].source) != len(rules[j].source) {
			return len(rules[i].source) > len(rules[j].source)
		}
		return rules[i].source < rules[j].source
	})
	return &Table{rules: rules}
}

// Len reports the number of configured rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Apply rewrites path through the table. The matched prefix's destination is
// spliced onto the unmatched remainder and the result re-normalized with the
// requested directory mode. No match returns the normalized input unchanged.
func (t *Table) Apply(path string, dir bool) string {
	normalized := Normalize(path, false)
	if normalized == "" {
		return ""
	}
	if t == nil {
		return Normalize(normalized, dir)
	}
	comparison := strings.ToLower(normalized)
	for _, r := range t.rules {
		if strings.HasPrefix(comparison, r.source) {
			mapped := r.destination + normalized[len(r.source):]
			return Normalize(mapped, dir)
		}
	}
	return Normalize(normalized, dir)
}
