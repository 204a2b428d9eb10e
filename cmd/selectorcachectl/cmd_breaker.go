package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Inspect or reset circuit breakers",
}

var breakerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of every tracked breaker",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		names := make([]string, 0, len(c.Breakers))
		for name := range c.Breakers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-28s %s\n", name, c.Breakers[name].State())
		}
		return nil
	},
}

var breakerTool string

var breakerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a breaker to closed, or every breaker with --tool=all",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadContext()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		if breakerTool == "" {
			return fmt.Errorf("--tool is required (use --tool=all to reset every breaker)")
		}
		if breakerTool == "all" {
			for _, b := range c.Breakers {
				b.Reset()
			}
			fmt.Println("every breaker reset")
			return nil
		}
		b, ok := c.Breakers[breakerTool]
		if !ok {
			return fmt.Errorf("no breaker tracked for tool %q", breakerTool)
		}
		b.Reset()
		fmt.Printf("breaker %q reset\n", breakerTool)
		return nil
	},
}

func init() {
	breakerResetCmd.Flags().StringVar(&breakerTool, "tool", "", "tool name to reset, or \"all\"")
}
