package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools and root binary directory are usable",
		Long: `Verify that git and cmake are resolvable on PATH, and that the root
binary directory's _cmakex subtree can be created and the install
database read.

Exits with a non-zero status if any check fails, making it suitable
for use as a gate in scripts and CI:

  cmakex doctor || exit 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Checking cmakex environment...")
			failed := false

			check := func(label string, fn func() error) {
				fmt.Fprintf(out, "  %s", label)
				if err := fn(); err != nil {
					fmt.Fprintln(out, " ... FAIL")
					fmt.Fprintf(os.Stderr, "    %v\n", err)
					failed = true
					return
				}
				fmt.Fprintln(out, " ... ok")
			}

			check("git on PATH", func() error {
				_, err := exec.LookPath("git")
				return err
			})

			check("cmake on PATH", func() error {
				_, err := exec.LookPath("cmake")
				return err
			})

			root, err := filepath.Abs(flagBinaryDir)
			if err != nil {
				return err
			}
			l := layout.New(root)

			check("_cmakex directory writable", func() error {
				return os.MkdirAll(l.CmakexDir(), 0o755)
			})

			check("install database readable", func() error {
				db := installdb.New(l.InstalledDir())
				entries, err := os.ReadDir(l.InstalledDir())
				if os.IsNotExist(err) {
					return nil
				}
				if err != nil {
					return err
				}
				for _, e := range entries {
					if e.IsDir() {
						continue
					}
					name := e.Name()
					if filepath.Ext(name) != ".toml" {
						continue
					}
					if _, _, err := db.TryGet(name[:len(name)-len(".toml")]); err != nil {
						return err
					}
				}
				return nil
			})

			if failed {
				fmt.Fprintln(out)
				return fmt.Errorf("environment check failed")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Everything looks good!")
			return nil
		},
	}
}
