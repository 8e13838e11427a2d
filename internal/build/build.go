// Package build implements the build executor (spec §4.H, Phase 2):
// it iterates a planner.Plan's topological order and, for every
// configuration a package was marked to build, drives configure,
// build, and install through the native tool as an opaque subprocess,
// then records the result in the install database. Grounded on the
// original implementation's run_add_pkgs.cpp build/install sequencing
// and out_err_messages.h for per-phase log capture.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cmakex/cmakex/internal/cmakexerr"
	"github.com/cmakex/cmakex/internal/generator"
	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
	"github.com/cmakex/cmakex/internal/log"
	"github.com/cmakex/cmakex/internal/planner"
	"github.com/cmakex/cmakex/internal/procexec"
)

// Reporter receives human-readable progress messages as the executor
// moves through packages, configurations, and phases. *progress.Spinner
// satisfies this; nil is also valid and disables reporting.
type Reporter interface {
	SetMessage(message string)
}

// Executor drives Phase 2 over a plan produced by internal/planner.
type Executor struct {
	Layout                 *layout.Layout
	DB                     *installdb.DB
	CMake                  string
	Generator              string
	PerConfigDirsRequested bool
	Logger                 log.Logger
	Reporter               Reporter
}

// New returns an Executor. logger may be nil, in which case a no-op
// logger is used.
func New(l *layout.Layout, db *installdb.DB, cmakeBinary, gen string, perConfigDirsRequested bool, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Executor{Layout: l, DB: db, CMake: cmakeBinary, Generator: gen, PerConfigDirsRequested: perConfigDirsRequested, Logger: logger}
}

// report forwards msg to the configured Reporter, if any.
func (e *Executor) report(msg string) {
	if e.Reporter != nil {
		e.Reporter.SetMessage(msg)
	}
}

// Run executes every pending build action in plan's topological order
// (spec §4.H). It aborts on the first failure without mutating the
// install database for the package that failed (spec: "the design
// does not roll back; the database is not touched on failure").
func (e *Executor) Run(ctx context.Context, plan *planner.Plan) error {
	for _, name := range plan.Order {
		entry := plan.Entries[name]
		if len(entry.Actions) == 0 {
			continue
		}
		if err := e.buildPackage(ctx, name, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) buildPackage(ctx context.Context, name string, entry *planner.Entry) error {
	binaryDirBase := e.Layout.BinaryDirBase(name)
	configured := map[string]bool{}

	for _, config := range sortedConfigs(entry.Actions) {
		action := entry.Actions[config]
		e.Logger.Info("building package", "name", name, "config", config, "reasons", action.Reasons)
		e.report(fmt.Sprintf("%s [%s]: starting", name, config))

		binaryDir := e.Layout.BinaryDir(name, config, e.PerConfigDirsRequested, e.Generator)
		needsConfigure := true
		if generator.IsMultiConfig(e.Generator) && configured[binaryDirBase] {
			needsConfigure = false
		}

		if needsConfigure {
			if err := e.configure(ctx, name, config, entry.SourceDir, binaryDir, action); err != nil {
				return err
			}
			configured[binaryDirBase] = true
		}
		if err := e.build(ctx, name, config, binaryDir); err != nil {
			return err
		}
		if err := e.install(ctx, name, config, binaryDir); err != nil {
			return err
		}
		if err := e.recordSuccess(name, entry, config, action); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) configure(ctx context.Context, name, config, sourceDir, binaryDir string, action *planner.BuildAction) error {
	args := []string{"-S", sourceDir, "-B", binaryDir}
	args = append(args, action.FinalArgs...)
	args = append(args,
		"-DCMAKE_INSTALL_PREFIX="+e.Layout.SharedInstallPrefix(),
		"-DCMAKE_PREFIX_PATH="+e.Layout.SharedInstallPrefix(),
	)
	if e.Generator != "" {
		args = append(args, "-G", e.Generator)
	}
	if !generator.IsMultiConfig(e.Generator) && config != "" {
		args = append(args, "-DCMAKE_BUILD_TYPE="+config)
	}
	return e.runPhase(ctx, name, config, "configure", args)
}

func (e *Executor) build(ctx context.Context, name, config, binaryDir string) error {
	args := []string{"--build", binaryDir}
	if generator.IsMultiConfig(e.Generator) {
		args = append(args, "--config", config)
	}
	return e.runPhase(ctx, name, config, "build", args)
}

func (e *Executor) install(ctx context.Context, name, config, binaryDir string) error {
	args := []string{"--install", binaryDir}
	if generator.IsMultiConfig(e.Generator) {
		args = append(args, "--config", config)
	}
	return e.runPhase(ctx, name, config, "install", args)
}

// runPhase executes one configure/build/install phase, capturing its
// output to the log directory under a deterministic name (spec §4.H
// step 2).
func (e *Executor) runPhase(ctx context.Context, name, config, phase string, args []string) error {
	e.report(fmt.Sprintf("%s [%s]: %s", name, config, phase))
	if err := os.MkdirAll(e.Layout.LogDir(), 0o755); err != nil {
		return cmakexerr.Filesystemf(err, "create log directory %q", e.Layout.LogDir())
	}
	logPath := filepath.Join(e.Layout.LogDir(), fmt.Sprintf("%s-%s-%s.log", name, layout.LowercaseConfigKey(config), phase))

	capture := procexec.NewCaptureBuilder(nil, nil)
	status, err := capture.Run(ctx, e.CMake, args, "")
	if writeErr := writeLog(logPath, capture.Chunks()); writeErr != nil {
		e.Logger.Warn("failed to write phase log", "path", logPath, "error", writeErr)
	}
	if err != nil {
		return cmakexerr.ExternalToolf(name, config, phase, err, "launch cmake for %s", phase)
	}
	if status != 0 {
		return cmakexerr.ExternalToolf(name, config, phase, nil, "cmake exited with status %d; see %s", status, logPath)
	}
	return nil
}

func writeLog(path string, chunks []procexec.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, c := range chunks {
		fmt.Fprintf(f, "[%s] %s\n", c.Source, c.Text)
	}
	return nil
}

// recordSuccess writes the updated installed configuration record for
// (name, config) after a successful configure/build/install, including
// the per-dependency fingerprint map (spec §4.H step 4).
func (e *Executor) recordSuccess(name string, entry *planner.Entry, config string, action *planner.BuildAction) error {
	record, found, err := e.DB.TryGet(name)
	if err != nil {
		return err
	}
	if !found {
		record = installdb.Record{Name: name, Configs: map[string]installdb.ConfigEntry{}}
	}
	if record.Configs == nil {
		record.Configs = map[string]installdb.ConfigEntry{}
	}
	record.Dependencies = entry.Request.Dependencies

	depFingerprints := map[string]map[string]string{}
	for _, dep := range entry.Request.Dependencies {
		depRecord, found, err := e.DB.TryGet(dep)
		if err != nil {
			return err
		}
		if !found {
			return cmakexerr.Plannerf(name, "invariant violated: dependency %q has no install record", dep)
		}
		fp := installdb.Fingerprint(depRecord)
		cfgFps := map[string]string{}
		for c := range depRecord.Configs {
			cfgFps[c] = fp
		}
		depFingerprints[dep] = cfgFps
	}

	record.Configs[config] = installdb.ConfigEntry{
		Configuration:          config,
		RemoteURL:              entry.Request.URL,
		ResolvedCommit:         entry.ResolvedCommit,
		SourceSubPath:          entry.Request.SourceSubPath,
		ConfigureArgs:          entry.Request.ConfigureArgs,
		FinalConfigureArgs:     action.FinalArgs,
		DependencyFingerprints: depFingerprints,
	}
	return e.DB.Put(record)
}

func sortedConfigs(actions map[string]*planner.BuildAction) []string {
	out := make([]string, 0, len(actions))
	for c := range actions {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
