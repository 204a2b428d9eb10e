package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the bidirectional selector cache",
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print row counts for every cache table",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		stats, err := c.Cache.Stats()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-20s %d\n", name, stats[name])
		}
		return nil
	},
}

var confirmClear bool

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Truncate every cache table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmClear {
			return fmt.Errorf("refusing to clear the cache without --yes")
		}
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		if err := c.Cache.Clear(); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().BoolVar(&confirmClear, "yes", false, "confirm clearing every cache table")
}
