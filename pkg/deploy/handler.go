// Package deploy implements C10 (spec.md §4.10): cloning a domain's
// configured Git repository, patching page metadata in place through a
// priority-ordered framework-handler registry, and pushing the result.
package deploy

import "sort"

// FrameworkHandler detects one project layout and knows how to locate
// and patch a single page's source file within it.
type FrameworkHandler interface {
	// Name identifies the handler for logging.
	Name() string
	// Priority ranks handlers; the registry tries highest first. The
	// static-HTML handler registers at 0 and always matches, acting as
	// the always-available fallback.
	Priority() int
	// Detect reports whether rootDir looks like this handler's project type.
	Detect(rootDir string) bool
	// ResolveFile maps a page's URL path to a file under rootDir, the
	// second return reporting whether a file was found.
	ResolveFile(rootDir, pagePath string) (string, bool)
	// Patch rewrites title/description in filePath in place. Empty
	// title or description values are left untouched. Returns whether
	// the file was actually modified.
	Patch(filePath, title, description string) (bool, error)
}

// Registry holds framework handlers in descending-priority order
// (spec.md §4.10 step 2): the framework handler at priority 10, the
// static-HTML fallback at priority 0, always-matches.
type Registry struct {
	handlers []FrameworkHandler
}

// NewRegistry builds a Registry sorted by descending priority.
func NewRegistry(handlers ...FrameworkHandler) *Registry {
	sorted := append([]FrameworkHandler{}, handlers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() > sorted[j].Priority() })
	return &Registry{handlers: sorted}
}

// Detect returns the highest-priority handler whose Detect matches rootDir.
func (r *Registry) Detect(rootDir string) (FrameworkHandler, error) {
	for _, h := range r.handlers {
		if h.Detect(rootDir) {
			return h, nil
		}
	}
	return nil, &ProjectDetectionError{Reason: "no handler matched " + rootDir}
}
