package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
)

func newInstallDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-db",
		Short: "Inspect the install database under the root binary directory",
	}
	cmd.AddCommand(newInstallDBShowCmd())
	return cmd
}

func newInstallDBShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the installed record for one package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := layout.New(flagBinaryDir)
			db := installdb.New(l.InstalledDir())

			record, found, err := db.TryGet(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not installed\n", args[0])
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", record.Name)
			fmt.Fprintf(out, "  dependencies: %v\n", record.Dependencies)
			for config, entry := range record.Configs {
				fmt.Fprintf(out, "  %s: commit=%s url=%s args=%v\n", config, entry.ResolvedCommit, entry.RemoteURL, entry.FinalConfigureArgs)
			}
			return nil
		},
	}
}
