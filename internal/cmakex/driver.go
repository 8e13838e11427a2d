// Package cmakex wires the core components (layout, procexec, vcs,
// cfgargs, installdb, depscript, planner, build, generator) into the
// two top-level operations a caller invokes: Plan and Build. It owns
// the add_pkg argument grammar that bridges the script evaluator
// adapter's raw output into planner requests.
package cmakex

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cmakex/cmakex/internal/build"
	"github.com/cmakex/cmakex/internal/config"
	"github.com/cmakex/cmakex/internal/depscript"
	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
	"github.com/cmakex/cmakex/internal/log"
	"github.com/cmakex/cmakex/internal/planner"
	"github.com/cmakex/cmakex/internal/vcs"
)

// Driver assembles every component behind a single root binary
// directory and resolved CMake/generator identity.
type Driver struct {
	Layout                 *layout.Layout
	Config                 *config.Config
	DB                     *installdb.DB
	CMake                  string
	Generator              string
	PerConfigDirsRequested bool
	StrictCommit           bool
	Logger                 log.Logger

	vcsClient  *vcs.Git
	depsScript *depscript.Adapter
}

// Options configures a new Driver.
type Options struct {
	RootBinaryDir          string
	CMakeBinary            string // resolved via exec.LookPath("cmake") when empty
	Generator              string
	PerConfigDirsRequested bool
	StrictCommit           bool
	Logger                 log.Logger
}

// New resolves a Driver from Options, loading the environment-derived
// Config and constructing every dependent component.
func New(opts Options) (*Driver, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	cmakeBinary := opts.CMakeBinary
	if cmakeBinary == "" {
		resolved, err := exec.LookPath("cmake")
		if err != nil {
			return nil, err
		}
		cmakeBinary = resolved
	}

	cfg, err := config.Load(opts.RootBinaryDir)
	if err != nil {
		return nil, err
	}

	l := layout.New(cfg.RootBinaryDir)
	db := installdb.New(l.InstalledDir())

	return &Driver{
		Layout:                 l,
		Config:                 cfg,
		DB:                     db,
		CMake:                  cmakeBinary,
		Generator:              opts.Generator,
		PerConfigDirsRequested: opts.PerConfigDirsRequested,
		StrictCommit:           opts.StrictCommit,
		Logger:                 opts.Logger,
		vcsClient:              vcs.New(),
		depsScript:             depscript.New(l.DepsScriptExecutorProjectDir(), l.TmpDir(), l.LogDir(), cmakeBinary),
	}, nil
}

// PlanParams is the caller-facing input to Plan.
type PlanParams struct {
	MainSourceDir    string
	RequestedDeps    []planner.Request
	RequestedConfigs []string
	ScriptOverride   string
}

// singletonArgs returns the generator-identity flags (-G <generator>,
// or nil when no generator was given) that must be shared between the
// main project, the script evaluator helper project, and every
// dependency's own configure step.
func (d *Driver) singletonArgs() []string {
	if d.Generator == "" {
		return nil
	}
	return []string{"-G", d.Generator}
}

// Plan configures the dependency-script evaluator helper project once,
// then runs the dependency planner over the main project's declared
// dependencies (spec §4.F step 2, §4.G).
func (d *Driver) Plan(ctx context.Context, params PlanParams) (*planner.Plan, error) {
	evaluatorBinaryDir := filepath.Join(d.Layout.CmakexDir(), "deps_script_executor_build")
	if err := d.depsScript.Configure(ctx, d.singletonArgs(), evaluatorBinaryDir); err != nil {
		return nil, err
	}

	disc := &ScriptDiscoverer{Adapter: d.depsScript, BinaryDir: evaluatorBinaryDir}
	p := planner.New(d.Layout, d.DB, d.vcsClient, disc, d.StrictCommit, d.Logger)

	globalFlags := []string{
		"-DCMAKE_PREFIX_PATH=" + joinPathList(append([]string{d.Layout.SharedInstallPrefix()}, d.Config.PrefixPathVector...)),
	}

	return p.Plan(ctx, planner.Params{
		MainSourceDir:    params.MainSourceDir,
		RequestedDeps:    params.RequestedDeps,
		GlobalFlags:      globalFlags,
		RequestedConfigs: params.RequestedConfigs,
		ScriptOverride:   params.ScriptOverride,
	})
}

// Build drives Phase 2 over a plan already produced by Plan. reporter
// may be nil; when given (typically a *progress.Spinner), it receives
// a message for every package/configuration/phase transition.
func (d *Driver) Build(ctx context.Context, plan *planner.Plan, reporter build.Reporter) error {
	exe := build.New(d.Layout, d.DB, d.CMake, d.Generator, d.PerConfigDirsRequested, d.Logger)
	exe.Reporter = reporter
	return exe.Run(ctx, plan)
}

func joinPathList(paths []string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}
