// Package planner implements the dependency planner (spec §4.G,
// Phase 1): the recursive traversal that discovers packages through
// the script evaluator adapter, merges duplicate requests, enforces
// the strict-commit policy, and produces a topological build order
// with per-configuration build reasons. It is grounded on the original
// implementation's run_add_pkgs.cpp (add_pkg) and
// circular_dependency_detector.{h,cpp}.
package planner

import (
	"context"

	"github.com/cmakex/cmakex/internal/vcs"
)

// Request is a package request as it flows through planning: a name,
// clone parameters, build parameters, and the direct dependency names
// discovered for it (spec §3 "Package request").
type Request struct {
	Name string

	URL     string // empty means name-only: dependency must already be installed
	Ref     string // empty means default branch tip
	Shallow bool

	SourceSubPath string
	ConfigureArgs []string
	Configs       []string // empty means "use the planner's requested configurations"

	Dependencies []string // direct dependency names; populated by the planner after recursion
}

// NameOnly reports whether this request has no clone parameters of its
// own, meaning it refers to a package that must already be installed.
func (r Request) NameOnly() bool { return r.URL == "" }

// BuildAction is the work Phase 2 must perform for one configuration
// of one package.
type BuildAction struct {
	Reasons   []string // human-readable build reasons, spec §4.G
	FinalArgs []string // canonical configure args augmented by global flags
}

// Entry is the planner work-space's per-package aggregate (spec §3
// "Planner work-space entry").
type Entry struct {
	Request        Request
	JustCloned     bool
	ResolvedCommit string
	SourceDir      string // cloned package's source directory: CloneDir + SourceSubPath

	// Actions maps configuration name to the build action required for
	// it. A configuration absent from Actions is already satisfied and
	// needs no rebuild.
	Actions map[string]*BuildAction

	ordered bool
}

// Plan is the planner's output: a topological build order plus the
// work-space entry for each package in it (spec §3 "Plan").
type Plan struct {
	Order   []string
	Entries map[string]*Entry
}

// VCS is the subset of internal/vcs's client the planner depends on,
// named here so tests can substitute a fake.
type VCS interface {
	Clone(ctx context.Context, params vcs.CloneParams, target string) error
	Checkout(ctx context.Context, target, ref string) (int, error)
	LsRemote(ctx context.Context, url, ref string) (vcs.LsRemoteStatus, string, error)
	RevParse(ctx context.Context, dir, ref string) (string, error)
	Status(ctx context.Context, dir string) (vcs.StatusResult, error)
	ResolveAndClone(ctx context.Context, url, commit, target string) error
}

// Discoverer resolves a package's own declared dependencies: it finds
// and evaluates that package's dependency script if one exists (or
// uses scriptOverride when non-empty), and reports whether any script
// was consulted at all. When found is false, the caller falls back to
// literal requested dependencies (only meaningful for the main
// project, spec §4.G step 1).
type Discoverer interface {
	Discover(ctx context.Context, sourceDir, scriptOverride string) (deps []Request, found bool, err error)
}
