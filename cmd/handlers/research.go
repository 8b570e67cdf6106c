package handlers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"toolscout/internal/config"
	"toolscout/internal/core"
	"toolscout/internal/logger"
)

// NewResearchCmd creates the research command for one-shot pipeline runs
func NewResearchCmd() *cobra.Command {
	var (
		focus    string
		maxTools int
	)

	cmd := &cobra.Command{
		Use:   "research",
		Short: "Run one autonomous research pass",
		Long: `Run a single research pass from the command line: plan search queries,
discover candidate tools, validate them, analyze community sentiment, and
merge the results into the catalog.

Progress is printed as it happens; the command exits non-zero if the run
ends in an error.

Examples:
  toolscout research
  toolscout research --focus "testing,code review" --max-tools 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResearch(cmd, focus, maxTools)
		},
	}

	cmd.Flags().StringVar(&focus, "focus", "", "comma-separated focus areas (default: agent decides)")
	cmd.Flags().IntVar(&maxTools, "max-tools", 0, "maximum tools to add this run (default from config: 10)")

	return cmd
}

func runResearch(cmd *cobra.Command, focus string, maxTools int) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p, err := buildPipeline(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer p.close()

	var focusAreas []string
	for _, area := range strings.Split(focus, ",") {
		if area = strings.TrimSpace(area); area != "" {
			focusAreas = append(focusAreas, area)
		}
	}

	runID, err := p.controller.Start(focusAreas, maxTools)
	if err != nil {
		return fmt.Errorf("failed to start research run: %w", err)
	}
	logger.Info("Research run started", "run_id", runID, "model", p.llmClient.ModelName())
	fmt.Printf("🔍 Research run %s started\n", runID)

	events, cancel := p.controller.Subscribe()
	defer cancel()

	for evt := range events {
		switch evt.Type {
		case core.EventComplete:
			fmt.Printf("✅ %s\n", evt.Message)
		case core.EventError:
			fmt.Printf("❌ %s\n", evt.Message)
		default:
			fmt.Printf("   %s\n", evt.Message)
		}
	}

	snap := p.controller.Status()
	if snap.Status == core.StatusError {
		return fmt.Errorf("research run failed: %s", snap.Error)
	}

	fmt.Printf("\n📊 Run summary: %d discovered, %d added to %s\n",
		snap.DiscoveredCount, snap.AddedCount, cfg.Catalog.Path)
	return nil
}
