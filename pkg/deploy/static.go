package deploy

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// StaticHTMLHandler is the always-matches fallback (priority 0) for
// plain static sites: it maps a page URL to a file under target_path
// by trying `<path>.html`, `<path>/index.html`, and `.htm` variants,
// patching <title> and the description meta tag (spec.md §4.10 step 2).
type StaticHTMLHandler struct{}

func (StaticHTMLHandler) Name() string  { return "static_html" }
func (StaticHTMLHandler) Priority() int { return 0 }
func (StaticHTMLHandler) Detect(string) bool { return true }

func (StaticHTMLHandler) ResolveFile(rootDir, pagePath string) (string, bool) {
	pagePath = strings.Trim(pagePath, "/")
	candidates := []string{
		filepath.Join(rootDir, pagePath+".html"),
		filepath.Join(rootDir, pagePath, "index.html"),
		filepath.Join(rootDir, pagePath+".htm"),
	}
	if pagePath == "" {
		candidates = []string{
			filepath.Join(rootDir, "index.html"),
			filepath.Join(rootDir, "index.htm"),
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}

var (
	titleTagPattern = regexp.MustCompile(`(?is)<title>.*?</title>`)
	descMetaPattern = regexp.MustCompile(`(?is)<meta\s+name=["']description["']\s+content=["'][^"']*["']\s*/?>`)
	headOpenPattern = regexp.MustCompile(`(?i)<head[^>]*>`)
)

func (StaticHTMLHandler) Patch(filePath, title, description string) (bool, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return false, &FileNotFoundError{Path: filePath}
	}
	content := string(raw)
	changed := false

	if title != "" {
		tag := "<title>" + html.EscapeString(title) + "</title>"
		if titleTagPattern.MatchString(content) {
			content = titleTagPattern.ReplaceAllLiteralString(content, tag)
		} else {
			content = insertIntoHead(content, tag)
		}
		changed = true
	}

	if description != "" {
		tag := fmt.Sprintf(`<meta name="description" content="%s">`, html.EscapeString(description))
		if descMetaPattern.MatchString(content) {
			content = descMetaPattern.ReplaceAllLiteralString(content, tag)
		} else {
			content = insertIntoHead(content, tag)
		}
		changed = true
	}

	if !changed {
		return false, nil
	}
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return false, &MetadataUpdateError{Path: filePath, Err: err}
	}
	return true, nil
}

func insertIntoHead(content, tag string) string {
	if loc := headOpenPattern.FindStringIndex(content); loc != nil {
		return content[:loc[1]] + "\n" + tag + content[loc[1]:]
	}
	return tag + content
}
