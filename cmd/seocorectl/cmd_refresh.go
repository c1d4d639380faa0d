package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/refresh"
)

var gscOnly bool

var refreshCmd = &cobra.Command{
	Use:   "refresh <domain-id>",
	Short: "Run a single domain refresh synchronously",
	Long: `Runs the same discover/persist/hierarchy/collect/aggregate pipeline
cmd/seocored's full_refresh job runs, in the foreground, printing each
stage's progress. Use --gsc-only for the lightweight Search-Console-only
variant.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&gscOnly, "gsc-only", false, "run the lightweight GSC-only refresh instead of a full scan")
}

func runRefresh(cmd *cobra.Command, args []string) error {
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

	progress := func(p refresh.Progress) {
		fmt.Printf("[%3d%%] %-12s %s\n", p.Percent, p.Stage, p.Message)
	}

	if gscOnly {
		if err := d.orchestrator.RunGSCOnly(ctx, domainID, progress); err != nil {
			return fmt.Errorf("gsc refresh failed: %w", err)
		}
	} else {
		if err := d.orchestrator.Run(ctx, domainID, progress); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
	}

	var domain models.Domain
	if err := d.db.First(&domain, domainID).Error; err == nil {
		fmt.Printf("done: seo=%.1f performance=%.1f accessibility=%.1f\n",
			domain.SEOScore, domain.PerformanceScore, domain.AccessibilityScore)
	}
	return nil
}
