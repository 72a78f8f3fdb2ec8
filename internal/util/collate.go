package util

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collator is not safe for concurrent use
var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

// SortLocale sorts values in place using English collation rules,
// so "airbus" sorts next to "Airbus" instead of after every capital letter.
func SortLocale(values []string) {
	collatorMu.Lock()
	defer collatorMu.Unlock()

	sort.SliceStable(values, func(i, j int) bool {
		return collator.CompareString(values[i], values[j]) < 0
	})
}

// UniqueSorted returns the distinct non-empty values in collation order
func UniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}

	SortLocale(unique)
	return unique
}
