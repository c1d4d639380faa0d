package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seocore/seocore/pkg/aianalysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "ai-analyze <domain-id>",
	Short: "Run a synchronous AI analysis pass for a domain",
	Long: `Runs the same retrieval-augmented analysis cmd/seocored's ai_analysis
job runs, in the foreground, printing each generated suggestion instead
of waiting for GET /tasks/{id} polling.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	progress := func(step string, percent int) {
		fmt.Printf("[%3d%%] %s\n", percent, step)
	}

	result, err := d.analysis.AnalyzeDomain(ctx, domainID, aianalysis.ProgressFunc(progress))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Printf("\n%d suggestion(s) generated (fallback used: %v)\n", len(result.Suggestions), result.FallbackUsed)
	for _, s := range result.Suggestions {
		fmt.Printf("  #%d %-20s %-10s %s\n", s.ID, s.Type, s.Priority, s.Title)
	}
	if result.StrategySummary != "" {
		fmt.Printf("\nstrategy: %s\n", result.StrategySummary)
	}
	return nil
}
