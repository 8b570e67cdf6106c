package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolscout/internal/catalog"
	"toolscout/internal/config"
	"toolscout/internal/core"
)

// NewToolsCmd creates the tools command for inspecting the catalog
func NewToolsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the cataloged tools",
		Long: `Display the tools currently in the catalog, optionally filtered by
category.

Examples:
  toolscout tools
  toolscout tools --category "Code Review"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(category)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category")

	return cmd
}

func runTools(category string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tools, err := catalog.New(cfg.Catalog.Path).Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if category != "" {
		normalized := core.NormalizeCategory(category)
		filtered := tools[:0:0]
		for _, t := range tools {
			if t.Category == normalized {
				filtered = append(filtered, t)
			}
		}
		tools = filtered
	}

	if len(tools) == 0 {
		fmt.Println("No tools in the catalog yet. Run 'toolscout research' to discover some.")
		return nil
	}

	fmt.Printf("Cataloged Tools (%d):\n", len(tools))
	fmt.Println("=====================")
	for _, tool := range tools {
		fmt.Printf("%3d. %s [%s]\n", tool.ID, tool.Title, tool.Category)
		if tool.URL != "" {
			fmt.Printf("     %s\n", tool.URL)
		}
		if tool.Description != "" {
			fmt.Printf("     %s\n", tool.Description)
		}
		if tool.Sentiment != nil && tool.Sentiment.Summary.Rating != "" {
			fmt.Printf("     quality %.1f/10 | sentiment %s (%d analyzed)\n",
				tool.QualityScore, tool.Sentiment.Summary.Rating, tool.Sentiment.AnalyzedCount)
		} else {
			fmt.Printf("     quality %.1f/10\n", tool.QualityScore)
		}
		fmt.Println()
	}

	return nil
}
