package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmakex/cmakex/internal/cliverb"
	"github.com/cmakex/cmakex/internal/cmakex"
	"github.com/cmakex/cmakex/internal/planner"
	"github.com/cmakex/cmakex/internal/progress"
)

func newRunCmd() *cobra.Command {
	var url, ref, sourceSubPath string
	var cmakeArgs []string

	cmd := &cobra.Command{
		Use:   "run <name> <verb>",
		Short: `Plan and build one package for the verb token (e.g. "cbi dr")`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, token := args[0], args[1]
			verb, err := cliverb.Parse(token)
			if err != nil {
				return err
			}

			driver, err := cmakex.New(cmakex.Options{
				RootBinaryDir: flagBinaryDir,
				Generator:     flagGenerator,
				StrictCommit:  flagStrict,
			})
			if err != nil {
				return err
			}

			ctx := context.Background()
			plan, err := driver.Plan(ctx, cmakex.PlanParams{
				RequestedDeps: []planner.Request{{
					Name:          name,
					URL:           url,
					Ref:           ref,
					SourceSubPath: sourceSubPath,
					ConfigureArgs: cmakeArgs,
					Configs:       verb.Configs,
				}},
				RequestedConfigs: verb.Configs,
			})
			if err != nil {
				return err
			}

			if !verb.HasStep(cliverb.StepBuild) && !verb.HasStep(cliverb.StepInstall) {
				fmt.Fprintf(cmd.OutOrStdout(), "plan: %d package(s) in build order: %v\n", len(plan.Order), plan.Order)
				return nil
			}

			spinner := progress.NewSpinner(cmd.ErrOrStderr())
			spinner.Start(fmt.Sprintf("building %d package(s)", len(plan.Order)))
			err = driver.Build(ctx, plan, spinner)
			spinner.Stop()
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "remote URL (empty: name-only dependency, must already be installed)")
	cmd.Flags().StringVar(&ref, "ref", "", "ref to resolve (empty: default branch tip)")
	cmd.Flags().StringVar(&sourceSubPath, "source-dir", "", "source sub-path within the clone")
	cmd.Flags().StringArrayVar(&cmakeArgs, "cmake-arg", nil, "configure argument, repeatable")
	return cmd
}
