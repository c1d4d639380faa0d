package deploy

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// NextJSHandler patches the metadata export of a Next.js app/pages
// router file (spec.md §4.10 step 2's "framework handler").
type NextJSHandler struct{}

func (NextJSHandler) Name() string { return "nextjs" }
func (NextJSHandler) Priority() int { return 10 }

func (NextJSHandler) Detect(rootDir string) bool {
	for _, name := range []string{"next.config.js", "next.config.mjs", "next.config.ts"} {
		if _, err := os.Stat(filepath.Join(rootDir, name)); err == nil {
			return true
		}
	}
	return false
}

func (NextJSHandler) ResolveFile(rootDir, pagePath string) (string, bool) {
	pagePath = strings.Trim(pagePath, "/")
	var candidates []string
	if pagePath == "" {
		candidates = []string{
			filepath.Join(rootDir, "app", "page.tsx"),
			filepath.Join(rootDir, "app", "page.jsx"),
			filepath.Join(rootDir, "pages", "index.tsx"),
			filepath.Join(rootDir, "pages", "index.jsx"),
		}
	} else {
		candidates = []string{
			filepath.Join(rootDir, "app", pagePath, "page.tsx"),
			filepath.Join(rootDir, "app", pagePath, "page.jsx"),
			filepath.Join(rootDir, "app", pagePath, "page.js"),
			filepath.Join(rootDir, "pages", pagePath+".tsx"),
			filepath.Join(rootDir, "pages", pagePath+".jsx"),
			filepath.Join(rootDir, "pages", pagePath+".js"),
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}

func (NextJSHandler) Patch(filePath, title, description string) (bool, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return false, &FileNotFoundError{Path: filePath}
	}
	content := string(raw)
	changed := false

	if title != "" {
		if next, ok := patchMetadataField(content, "title", title); ok {
			content, changed = next, true
		}
	}
	if description != "" {
		if next, ok := patchMetadataField(content, "description", description); ok {
			content, changed = next, true
		}
	}
	if !changed {
		return false, nil
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return false, &MetadataUpdateError{Path: filePath, Err: err}
	}
	return true, nil
}

// patchMetadataField rewrites `field: <quote>value<quote>` for
// whichever of the three quote styles (double, single, backtick)
// appears in content, escaping backslashes and the quote character
// itself inside the replacement value.
func patchMetadataField(content, field, value string) (string, bool) {
	for _, q := range []string{`"`, `'`, "`"} {
		pattern := regexp.MustCompile(field + `:\s*` + regexp.QuoteMeta(q) + `([^` + regexp.QuoteMeta(q) + `]*)` + regexp.QuoteMeta(q))
		if pattern.MatchString(content) {
			replacement := field + ": " + q + escapeForQuote(value, q) + q
			return pattern.ReplaceAllLiteralString(content, replacement), true
		}
	}
	return content, false
}

func escapeForQuote(value, quote string) string {
	v := strings.ReplaceAll(value, `\`, `\\`)
	v = strings.ReplaceAll(v, quote, `\`+quote)
	return v
}
