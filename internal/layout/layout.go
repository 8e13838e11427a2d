// Package layout implements the path & layout service (spec §4.A): a
// pure function from a root binary directory plus package/config/
// generator identity to the filesystem locations cmakex derives from
// it. Nothing in this package performs I/O.
package layout

import (
	"path/filepath"
	"strings"

	"github.com/cmakex/cmakex/internal/generator"
)

// NoConfig is the canonical external form of the distinguished "no
// configuration" value (spec §3).
const NoConfig = "NoConfig"

// Layout derives all cmakex-owned paths under a single root binary
// directory.
type Layout struct {
	root string
}

// New returns a Layout rooted at rootBinaryDir. The caller is
// responsible for passing an absolute, cleaned path; New does not
// touch the filesystem.
func New(rootBinaryDir string) *Layout {
	return &Layout{root: filepath.Clean(rootBinaryDir)}
}

// Root returns the root binary directory this layout was built from.
func (l *Layout) Root() string { return l.root }

// DepsDir is the root of the per-package clone/build/install subtree.
func (l *Layout) DepsDir() string { return filepath.Join(l.root, "_deps") }

// CloneDir is the package's revision-controlled working tree.
func (l *Layout) CloneDir(name string) string {
	return filepath.Join(l.DepsDir(), name)
}

// BinaryDirBase is the package's binary directory before any
// per-configuration suffix is applied.
func (l *Layout) BinaryDirBase(name string) string {
	return filepath.Join(l.DepsDir(), name+"-build")
}

// BinaryDir is the package's binary directory for one configuration.
// perConfigDirsRequested is the user's setting; gen is the generator
// identity. The effective per-configuration flag is computed per
// spec §4.A via generator.NeedsPerConfigBinaryDirs.
func (l *Layout) BinaryDir(name, config string, perConfigDirsRequested bool, gen string) string {
	base := l.BinaryDirBase(name)
	if !generator.NeedsPerConfigBinaryDirs(perConfigDirsRequested, gen) {
		return base
	}
	return filepath.Join(base, externalConfigName(config))
}

// InstallDir is the package's own, private install prefix.
func (l *Layout) InstallDir(name string) string {
	return filepath.Join(l.DepsDir(), name+"-install")
}

// SharedInstallPrefix is the cross-package install prefix that the main
// project, and every other package, sees as a standard search path.
func (l *Layout) SharedInstallPrefix() string {
	return filepath.Join(l.root, "_deps-install")
}

// CmakexDir is the dedicated scratch/log/database subtree.
func (l *Layout) CmakexDir() string { return filepath.Join(l.root, "_cmakex") }

// LogDir holds captured subprocess output.
func (l *Layout) LogDir() string { return filepath.Join(l.CmakexDir(), "log") }

// TmpDir holds scratch state: script evaluator output, the recursion
// guard stack.
func (l *Layout) TmpDir() string { return filepath.Join(l.CmakexDir(), "tmp") }

// InstalledDir is the install database directory: one record file per
// installed package.
func (l *Layout) InstalledDir() string { return filepath.Join(l.CmakexDir(), "installed") }

// DepsScriptExecutorProjectDir is the wrapper project the script
// evaluator adapter maintains (spec §4.F, §6).
func (l *Layout) DepsScriptExecutorProjectDir() string {
	return filepath.Join(l.CmakexDir(), "deps_script_executor_project")
}

// externalConfigName maps the empty configuration to its canonical
// external form and leaves any other configuration name untouched.
// Equality elsewhere in cmakex stays case-sensitive; the case-folded
// form (LowercaseConfigKey) is used only for filesystem paths, per
// spec §3.
func externalConfigName(config string) string {
	if config == "" {
		return NoConfig
	}
	return config
}

// LowercaseConfigKey returns the case-folded secondary key used only
// for filesystem-path purposes (spec §3: "case-folded form is used
// only as a secondary key for filesystem paths").
func LowercaseConfigKey(config string) string {
	return strings.ToLower(externalConfigName(config))
}
