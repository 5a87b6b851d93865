package collector

import (
	"regexp"
	"sort"
	"strings"

	"benchvar/internal/benchparse"
)

// BuildFilters turns a set of unresolved benchmark names into -bench filter
// expressions. Top-level names and named sub-variants must become separate
// expressions: a combined slash regex would require every top-level
// benchmark to also match a sub-variant pattern, silently excluding it from
// the re-run.
func BuildFilters(names []string) []string {
	var tops []string
	parentSet := make(map[string]bool)
	subSet := make(map[string]bool)

	for _, name := range names {
		base := benchparse.StripParallelism(name)
		if base == "" {
			continue
		}
		parent, sub, found := strings.Cut(base, "/")
		if !found {
			tops = append(tops, regexp.QuoteMeta(base))
			continue
		}
		parentSet[regexp.QuoteMeta(parent)] = true
		subSet[regexp.QuoteMeta(sub)] = true
	}

	var filters []string
	if len(tops) > 0 {
		sort.Strings(tops)
		filters = append(filters, anchored(tops))
	}
	if len(parentSet) > 0 {
		parents := sortedKeys(parentSet)
		subs := sortedKeys(subSet)
		filters = append(filters, anchored(parents)+"/"+anchored(subs))
	}

	return filters
}

func anchored(alternatives []string) string {
	return "^(" + strings.Join(alternatives, "|") + ")$"
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
