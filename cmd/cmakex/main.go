// Command cmakex is the command-line entry point: it resolves global
// flags and a root binary directory, then parses the verb token
// through internal/cliverb and drives internal/cmakex's Plan/Build
// operations. The subcommand surface is a cobra root command with a
// PersistentPreRun that installs the logger from
// --quiet/--verbose/--debug.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmakex/cmakex/internal/buildinfo"
	"github.com/cmakex/cmakex/internal/log"
)

var (
	flagQuiet     bool
	flagVerbose   bool
	flagDebug     bool
	flagBinaryDir string
	flagGenerator string
	flagStrict    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cmakex",
		Short:         "A meta build driver and dependency planner on top of CMake",
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetDefault(log.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelFromFlags()})))
		},
	}

	root.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "errors only")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "operational context")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "internal state and troubleshooting detail")
	root.PersistentFlags().StringVarP(&flagBinaryDir, "binary-dir", "B", ".", "root binary directory")
	root.PersistentFlags().StringVarP(&flagGenerator, "generator", "G", "", "native build tool generator")
	root.PersistentFlags().BoolVar(&flagStrict, "strict-commit", true, "verify cloned commits against the remote ref")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newInstallDBCmd())
	root.AddCommand(newDoctorCmd())
	return root
}

func levelFromFlags() slog.Level {
	switch {
	case flagDebug:
		return slog.LevelDebug
	case flagVerbose:
		return slog.LevelInfo
	case flagQuiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// exitCodeFor maps an error to a process exit code. Every cmakexerr.Kind
// is a fatal, non-retryable condition (spec §7), so the exit code only
// needs to distinguish "something failed" from success; (*cmakexerr.Error).Error()
// already produces the single-line, actionable summary.
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err.Error())
	return 1
}
