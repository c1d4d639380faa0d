package discovery

import (
	"sort"
	"strings"
)

// buildHierarchy sorts pages shallowest-first and assigns each one the
// index of its longest-matching ancestor path among pages already
// placed, mirroring DomainScanner.build_hierarchy's nearest-ancestor
// search.
func buildHierarchy(pages []PageDraft) []PageDraft {
	sorted := make([]PageDraft, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DepthLevel < sorted[j].DepthLevel
	})

	for i := range sorted {
		pagePath := strings.Trim(sorted[i].Path, "/")
		var parent *int
		for j := i - 1; j >= 0; j-- {
			parentPath := strings.Trim(sorted[j].Path, "/")
			if parentPath == "" {
				continue
			}
			if strings.HasPrefix(pagePath, parentPath+"/") {
				idx := j
				parent = &idx
				break
			}
		}
		sorted[i].ParentIndex = parent
	}

	return sorted
}
