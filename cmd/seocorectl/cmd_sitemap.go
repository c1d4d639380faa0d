package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seocore/seocore/pkg/models"
)

var sitemapDiffCmd = &cobra.Command{
	Use:   "sitemap-diff <domain-id>",
	Short: "Preview a sitemap.xml regeneration against the currently-deployed file",
	Long: `Renders the domain's current sitemap entries (the same document
POST /sitemap/sessions/{id}/preview would produce), fetches the sitemap.xml
currently live at the domain's root, and prints a line-level diff so an
operator can see what a deploy would change before running it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSitemapDiff,
}

func runSitemapDiff(cmd *cobra.Command, args []string) error {
	domainID, err := parseDomainID(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.closeDB()

	var domain models.Domain
	if err := d.db.First(&domain, domainID).Error; err != nil {
		return fmt.Errorf("loading domain: %w", err)
	}

	session, err := d.sitemap.OpenSession(ctx, domainID)
	if err != nil {
		return fmt.Errorf("opening preview session: %w", err)
	}
	rendered, err := d.sitemap.Preview(ctx, session.ID, domainID)
	if err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}

	liveURL := fmt.Sprintf("%s://%s/sitemap.xml", domain.Scheme, domain.Hostname)
	live, err := fetchLiveSitemap(ctx, liveURL)
	if err != nil {
		fmt.Printf("warning: could not fetch live sitemap at %s: %v\n", liveURL, err)
		live = ""
	}

	printLineDiff(live, rendered)
	return nil
}

func fetchLiveSitemap(ctx context.Context, url string) (string, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// printLineDiff prints a minimal unified-style line diff: lines only in
// before are prefixed "-", lines only in after are prefixed "+", shared
// lines are omitted. Good enough for XML sitemaps, which rarely reorder
// lines between regenerations.
func printLineDiff(before, after string) {
	beforeLines := splitNonEmpty(before)
	afterLines := splitNonEmpty(after)

	beforeSet := make(map[string]int, len(beforeLines))
	for _, l := range beforeLines {
		beforeSet[l]++
	}
	afterSet := make(map[string]int, len(afterLines))
	for _, l := range afterLines {
		afterSet[l]++
	}

	removed, added := 0, 0
	for _, l := range beforeLines {
		if afterSet[l] > 0 {
			afterSet[l]--
			continue
		}
		fmt.Printf("- %s\n", l)
		removed++
	}
	for _, l := range afterLines {
		if beforeSet[l] > 0 {
			beforeSet[l]--
			continue
		}
		fmt.Printf("+ %s\n", l)
		added++
	}
	fmt.Printf("\n%d removed, %d added, %d unchanged\n", removed, added, len(beforeLines)-removed)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
