package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run a one-shot health check across cache, breakers, and degradation",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		report := c.Health.Report()

		status := "HEALTHY"
		if !report.Healthy() {
			status = "DEGRADED"
		}
		fmt.Printf("status:      %s\n", status)
		fmt.Printf("degradation: %s\n", report.DegradationLevel)

		fmt.Println("breakers:")
		breakers := report.Breakers
		sort.Slice(breakers, func(i, j int) bool { return breakers[i].Name < breakers[j].Name })
		for _, b := range breakers {
			fmt.Printf("  %-28s %s\n", b.Name, b.State)
		}

		fmt.Println("store:")
		names := make([]string, 0, len(report.StoreStats))
		for name := range report.StoreStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %d\n", name, report.StoreStats[name])
		}

		fmt.Println("counters:")
		fmt.Printf("  total_lookups  %d\n", report.Counters.TotalLookups)
		fmt.Printf("  hit_rate       %.2f\n", report.Counters.HitRate)
		fmt.Printf("  learn_events   %d\n", report.Counters.LearnEvents)
		fmt.Printf("  invalidations  %d\n", report.Counters.Invalidations)
		fmt.Printf("  scenario_saves %d\n", report.Counters.ScenarioSaves)

		if !report.Healthy() {
			return fmt.Errorf("degraded")
		}
		return nil
	},
}
