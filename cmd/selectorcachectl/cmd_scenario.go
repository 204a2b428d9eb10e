package main

import (
	stdctx "context"
	"fmt"

	"github.com/spf13/cobra"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage learned test scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every saved scenario with its success rate and confidence",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		scenarios, err := c.Scenarios.List(stdctx.Background())
		if err != nil {
			return err
		}
		for _, sc := range scenarios {
			fmt.Printf("%-30s runs=%-5d success_rate=%.2f confidence=%.2f\n",
				sc.Name, sc.TotalRuns, sc.SuccessRate, sc.Confidence)
		}
		return nil
	},
}

var (
	deleteName string
	deleteTag  string
	deleteAll  bool
)

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a scenario by name, by tag, or every scenario (with --all --yes)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		ctx := stdctx.Background()
		switch {
		case deleteAll:
			if err := c.Scenarios.DeleteAll(ctx, confirmClear); err != nil {
				return err
			}
			fmt.Println("every scenario deleted")
		case deleteTag != "":
			if err := c.Scenarios.DeleteByTag(ctx, deleteTag); err != nil {
				return err
			}
			fmt.Printf("deleted scenarios tagged %q\n", deleteTag)
		case deleteName != "":
			if err := c.Scenarios.Delete(ctx, deleteName); err != nil {
				return err
			}
			fmt.Printf("deleted scenario %q\n", deleteName)
		default:
			return fmt.Errorf("one of --name, --tag, or --all is required")
		}
		return nil
	},
}

var scenarioDecayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run one confidence-decay pass against stale scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		n, err := c.Scenarios.DecayConfidence(stdctx.Background())
		if err != nil {
			return err
		}
		fmt.Printf("decayed confidence for %d scenarios\n", n)
		return nil
	},
}

func init() {
	scenarioDeleteCmd.Flags().StringVar(&deleteName, "name", "", "delete the scenario with this exact name")
	scenarioDeleteCmd.Flags().StringVar(&deleteTag, "tag", "", "delete every scenario carrying this tag")
	scenarioDeleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every scenario (requires --yes)")
	scenarioDeleteCmd.Flags().BoolVar(&confirmClear, "yes", false, "confirm a --all delete")
}
