package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seocore/seocore/pkg/models"
)

var recalculateDepthCmd = &cobra.Command{
	Use:   "recalculate-depth <domain-id>",
	Short: "Repair a domain's page hierarchy without a full refresh",
	Long: `Recomputes every active page's parent_id and depth_level from its
path, the same pass the refresh orchestrator runs after discovery.
Ported from the original seo_analyzer's recalculate_depth_levels
management command, for operators repairing a domain without waiting
on Lighthouse/Search Console collection.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecalculateDepth,
}

var debugTreeCmd = &cobra.Command{
	Use:   "debug-tree <domain-id>",
	Short: "Print a domain's page hierarchy as an indented tree",
	Long: `Prints every active page in a domain indented by depth_level, for
visually auditing the hierarchy the refresh orchestrator built. Ported
from the original seo_analyzer's debug_tree management command.`,
	Args: cobra.ExactArgs(1),
	RunE: runDebugTree,
}

func runRecalculateDepth(cmd *cobra.Command, args []string) error {
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

	if err := d.orchestrator.RebuildHierarchy(ctx, domainID); err != nil {
		return fmt.Errorf("recalculating depth: %w", err)
	}

	var count int64
	d.db.Model(&models.Page{}).Where("domain_id = ? AND is_active", domainID).Count(&count)
	fmt.Printf("hierarchy rebuilt for %d active page(s)\n", count)
	return nil
}

func runDebugTree(cmd *cobra.Command, args []string) error {
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

	var pages []models.Page
	if err := d.db.WithContext(ctx).Where("domain_id = ? AND is_active", domainID).Find(&pages).Error; err != nil {
		return fmt.Errorf("loading pages: %w", err)
	}
	if len(pages) == 0 {
		fmt.Println("no active pages for this domain")
		return nil
	}

	children := make(map[uint][]models.Page)
	var roots []models.Page
	for _, p := range pages {
		if p.ParentID == nil || *p.ParentID == p.ID {
			roots = append(roots, p)
			continue
		}
		children[*p.ParentID] = append(children[*p.ParentID], p)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	for _, child := range children {
		sort.Slice(child, func(i, j int) bool { return child[i].Path < child[j].Path })
	}

	var printNode func(p models.Page, depth int)
	printNode = func(p models.Page, depth int) {
		fmt.Printf("%s%s (depth=%d, id=%d)\n", strings.Repeat("  ", depth), p.Path, p.DepthLevel, p.ID)
		for _, child := range children[p.ID] {
			printNode(child, depth+1)
		}
	}
	for _, root := range roots {
		printNode(root, 0)
	}
	return nil
}
