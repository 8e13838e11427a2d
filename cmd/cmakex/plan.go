package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmakex/cmakex/internal/cmakex"
)

func newPlanCmd() *cobra.Command {
	var scriptOverride string
	var configs []string

	cmd := &cobra.Command{
		Use:   "plan <main-source-dir>",
		Short: "Run Phase 1 over the main project's deps.cmake without building anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := cmakex.New(cmakex.Options{
				RootBinaryDir: flagBinaryDir,
				Generator:     flagGenerator,
				StrictCommit:  flagStrict,
			})
			if err != nil {
				return err
			}

			plan, err := driver.Plan(context.Background(), cmakex.PlanParams{
				MainSourceDir:    args[0],
				RequestedConfigs: configs,
				ScriptOverride:   scriptOverride,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "build order: %v\n", plan.Order)
			for _, name := range plan.Order {
				entry := plan.Entries[name]
				if len(entry.Actions) == 0 {
					fmt.Fprintf(out, "  %s: up to date\n", name)
					continue
				}
				for config, action := range entry.Actions {
					fmt.Fprintf(out, "  %s/%s: %v\n", name, config, action.Reasons)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptOverride, "script", "", "override the discovered dependency script")
	cmd.Flags().StringArrayVar(&configs, "config", nil, "configuration to plan for, repeatable")
	return cmd
}
