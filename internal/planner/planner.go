package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmakex/cmakex/internal/cfgargs"
	"github.com/cmakex/cmakex/internal/cmakexerr"
	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
	"github.com/cmakex/cmakex/internal/log"
	"github.com/cmakex/cmakex/internal/vcs"
)

// Planner resolves a Params into a Plan.
type Planner struct {
	Layout       *layout.Layout
	DB           *installdb.DB
	VCS          VCS
	Discoverer   Discoverer
	StrictCommit bool
	Logger       log.Logger
}

// New returns a Planner. logger may be nil, in which case a no-op
// logger is used.
func New(l *layout.Layout, db *installdb.DB, v VCS, d Discoverer, strictCommit bool, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Planner{Layout: l, DB: db, VCS: v, Discoverer: d, StrictCommit: strictCommit, Logger: logger}
}

// Params is the input to Plan (spec §4.G: "plan(main_source,
// main_binary, requested_deps, global_flags, requested_configs,
// strict_commit, script_override?)"). main_binary is implicit in the
// Planner's Layout.
type Params struct {
	MainSourceDir    string
	RequestedDeps    []Request
	GlobalFlags      []string
	RequestedConfigs []string
	ScriptOverride   string
}

// workspace carries planning state across the recursive addPkg calls.
type workspace struct {
	entries map[string]*Entry
	order   []string
	guard   *recursionGuard
}

// Plan runs dependency planning over the main project's declared
// dependencies and everything they transitively require, per spec
// §4.G.
func (p *Planner) Plan(ctx context.Context, params Params) (*Plan, error) {
	guard, err := newRecursionGuard(p.Layout.TmpDir())
	if err != nil {
		return nil, err
	}
	ws := &workspace{entries: map[string]*Entry{}, guard: guard}

	deps, found, err := p.Discoverer.Discover(ctx, params.MainSourceDir, params.ScriptOverride)
	if err != nil {
		return nil, err
	}
	if !found {
		deps = params.RequestedDeps
	}

	for _, req := range deps {
		if err := p.addPkg(ctx, ws, req, params.GlobalFlags, params.RequestedConfigs); err != nil {
			return nil, err
		}
	}

	return &Plan{Order: ws.order, Entries: ws.entries}, nil
}

// addPkg is the recursive handler for one package request.
func (p *Planner) addPkg(ctx context.Context, ws *workspace, req Request, globalFlags, requestedConfigs []string) (err error) {
	if len(req.Configs) == 0 {
		req.Configs = requestedConfigs
	}
	if err := cfgargs.ValidateRequestArgs(req.ConfigureArgs); err != nil {
		return cmakexerr.Requestf(req.Name, "%s", err)
	}

	if existing, ok := ws.entries[req.Name]; ok && existing.ordered {
		return p.extendEntry(existing, req)
	}

	if ws.guard.Contains(req.Name) {
		return &CircularDependencyError{Chain: ws.guard.ChainSince(req.Name)}
	}

	p.Logger.Debug("planning package", "name", req.Name)

	entry, ok := ws.entries[req.Name]
	if ok {
		merged, err := mergeRequests(entry.Request, req)
		if err != nil {
			return cmakexerr.Requestf(req.Name, "%s", err)
		}
		entry.Request = merged
	} else {
		entry = &Entry{Request: req}
		ws.entries[req.Name] = entry
	}

	if err := ws.guard.Push(req.Name); err != nil {
		return err
	}
	defer func() {
		if popErr := ws.guard.Pop(req.Name); popErr != nil {
			if err == nil {
				err = popErr
			} else {
				p.Logger.Warn("recursion guard pop failed", "name", req.Name, "error", popErr)
			}
		}
	}()

	needsDiscovery, err := p.resolve(ctx, entry, globalFlags)
	if err != nil {
		return err
	}

	if needsDiscovery {
		subDeps, found, err := p.Discoverer.Discover(ctx, entry.SourceDir, "")
		if err != nil {
			return err
		}
		if found {
			var names []string
			for _, sub := range subDeps {
				names = append(names, sub.Name)
				if err := p.addPkg(ctx, ws, sub, globalFlags, requestedConfigs); err != nil {
					return err
				}
			}
			entry.Request.Dependencies = names
		}
	}

	entry.ordered = true
	ws.order = append(ws.order, req.Name)
	return nil
}

// extendEntry implements "extend-by-reentry": a diamond dependency
// reaching an already-ordered package only unions its configuration
// and dependency sets; it does not re-recurse (spec §4.G state
// machine: "ordered -- extend-by-reentry --> ordered (merged)"). Any
// configuration this reentry introduces that the original pass never
// evaluated is evaluated now, in isolation, against the install
// database.
func (p *Planner) extendEntry(entry *Entry, req Request) error {
	previousConfigs := map[string]bool{}
	for _, c := range entry.Request.Configs {
		previousConfigs[c] = true
	}

	merged, err := mergeRequests(entry.Request, req)
	if err != nil {
		return cmakexerr.Requestf(req.Name, "%s", err)
	}
	entry.Request = merged

	for _, config := range req.Configs {
		if previousConfigs[config] {
			continue
		}
		eval, err := p.DB.Evaluate(installdb.Request{
			Name:          entry.Request.Name,
			Configs:       []string{config},
			ConfigureArgs: entry.Request.ConfigureArgs,
		})
		if err != nil {
			return err
		}
		if eval.Status == installdb.Satisfied {
			continue
		}
		p.addAction(entry, config, fmt.Sprintf("missing configuration %s", config), entry.Request.ConfigureArgs, nil)
	}
	return nil
}

// mergeRequests merges a new request into an existing planner entry
// for the same package (spec §4.G step 3a).
func mergeRequests(existing, incoming Request) (Request, error) {
	if existing.SourceSubPath != incoming.SourceSubPath {
		return Request{}, fmt.Errorf("conflicting SOURCE_DIR for %q: %q vs %q",
			existing.Name, existing.SourceSubPath, incoming.SourceSubPath)
	}
	ica, err := cfgargs.Incompatible(existing.ConfigureArgs, incoming.ConfigureArgs)
	if err != nil {
		return Request{}, err
	}
	if len(ica) > 0 {
		return Request{}, fmt.Errorf("conflicting configure flags for %q: %v", existing.Name, ica)
	}

	merged := existing
	merged.Configs = unionStrings(existing.Configs, incoming.Configs)
	merged.Dependencies = unionStrings(existing.Dependencies, incoming.Dependencies)
	if merged.URL == "" {
		merged.URL = incoming.URL
		merged.Ref = incoming.Ref
	}
	args, err := cfgargs.Canonicalize(append(append([]string(nil), existing.ConfigureArgs...), incoming.ConfigureArgs...))
	if err != nil {
		return Request{}, err
	}
	merged.ConfigureArgs = args
	return merged, nil
}

func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// resolve implements spec §4.G step 3b-3d: evaluate the merged request
// against the install database, decide clone/keep/fail, and populate
// entry.Actions, entry.ResolvedCommit, entry.JustCloned, entry.SourceDir.
// It returns whether the caller should recurse into entry.SourceDir to
// discover this package's own dependencies: that is only meaningful
// when a source tree is actually on disk, which is not the case for a
// package that is already fully satisfied and was never cloned this
// run, or for a name-only dependency.
func (p *Planner) resolve(ctx context.Context, entry *Entry, globalFlags []string) (bool, error) {
	req := entry.Request

	if req.NameOnly() {
		return false, p.resolveNameOnly(entry)
	}

	cloneDir := p.Layout.CloneDir(req.Name)
	entry.Actions = map[string]*BuildAction{}

	eval, err := p.DB.Evaluate(installdb.Request{
		Name:          req.Name,
		Configs:       req.Configs,
		ConfigureArgs: req.ConfigureArgs,
	})
	if err != nil {
		return false, err
	}

	cloned := dirExists(cloneDir)

	switch eval.Status {
	case installdb.NotInstalled:
		if !cloned {
			if err := p.cloneRequest(ctx, req, cloneDir); err != nil {
				return false, err
			}
			entry.JustCloned = true
		} else if p.StrictCommit {
			if err := p.verifyCloneMatchesRequest(ctx, req, cloneDir); err != nil {
				return false, err
			}
		}
		entry.ResolvedCommit, err = p.commitOf(ctx, cloneDir)
		if err != nil {
			return false, err
		}
		p.markAllConfigsForBuild(entry, req.Configs, "requested but not installed", globalFlags)

	case installdb.MissingConfigs:
		installedRef := eval.Record.Configs[firstKey(eval.Record.Configs)].ResolvedCommit
		if !cloned {
			if err := p.cloneAtCommit(ctx, req.URL, installedRef, cloneDir); err != nil {
				return false, err
			}
		}
		entry.ResolvedCommit = installedRef
		for _, config := range eval.MissingConfigs {
			p.addAction(entry, config, fmt.Sprintf("missing configuration %s", config), req.ConfigureArgs, globalFlags)
		}

	case installdb.Satisfied:
		installedRef := eval.Record.Configs[firstKey(eval.Record.Configs)].ResolvedCommit
		entry.ResolvedCommit = installedRef
		entry.Request.Dependencies = eval.Record.Dependencies

		if p.StrictCommit {
			resolved, err := p.resolveRef(ctx, req, cloneDir)
			if err != nil {
				return false, err
			}
			if resolved != installedRef {
				if !cloned {
					if err := p.cloneAtCommit(ctx, req.URL, installedRef, cloneDir); err != nil {
						return false, err
					}
				}
				status, err := p.VCS.Checkout(ctx, cloneDir, resolved)
				if err != nil {
					return false, err
				}
				if status != 0 {
					return false, cmakexerr.Plannerf(req.Name, "checkout of %s failed", resolved)
				}
				entry.ResolvedCommit = resolved
				reason := fmt.Sprintf("HEAD on remote advanced from %s to %s", installedRef, resolved)
				p.markAllConfigsForBuild(entry, req.Configs, reason, globalFlags)
				entry.SourceDir = filepath.Join(cloneDir, req.SourceSubPath)
				return true, nil
			}
		}

		for _, reason := range p.dependencyFingerprintReasons(eval.Record, req.Configs) {
			p.addAction(entry, reason.config, reason.text, req.ConfigureArgs, globalFlags)
		}

		if len(entry.Actions) == 0 && !cloned {
			// Nothing to build and nothing on disk to recurse into; this
			// package's dependency names are already on record.
			return false, nil
		}
		if len(entry.Actions) > 0 && !cloned {
			if err := p.cloneAtCommit(ctx, req.URL, installedRef, cloneDir); err != nil {
				return false, err
			}
		}

	case installdb.NotCompatible:
		if !cloned {
			if err := p.cloneRequest(ctx, req, cloneDir); err != nil {
				return false, err
			}
			entry.JustCloned = true
		}
		entry.ResolvedCommit, err = p.commitOf(ctx, cloneDir)
		if err != nil {
			return false, err
		}
		reason := fmt.Sprintf("configure flags changed: %v", eval.IncompatibleArgs)
		p.markAllConfigsForBuild(entry, req.Configs, reason, globalFlags)
	}

	entry.SourceDir = filepath.Join(cloneDir, req.SourceSubPath)
	return true, nil
}

// resolveNameOnly handles a dependency declared by name only: it must
// already be installed, in full, for every requested configuration.
func (p *Planner) resolveNameOnly(entry *Entry) error {
	eval, err := p.DB.Evaluate(installdb.Request{
		Name:          entry.Request.Name,
		Configs:       entry.Request.Configs,
		ConfigureArgs: entry.Request.ConfigureArgs,
	})
	if err != nil {
		return err
	}
	if eval.Status != installdb.Satisfied {
		return cmakexerr.Plannerf(entry.Request.Name,
			"package %q is referenced by name only but is not fully installed (status: %s)",
			entry.Request.Name, eval.Status)
	}
	entry.ResolvedCommit = eval.Record.Configs[firstKey(eval.Record.Configs)].ResolvedCommit
	entry.Request.Dependencies = eval.Record.Dependencies
	return nil
}

func (p *Planner) markAllConfigsForBuild(entry *Entry, configs []string, reason string, globalFlags []string) {
	for _, config := range configs {
		p.addAction(entry, config, reason, entry.Request.ConfigureArgs, globalFlags)
	}
}

func (p *Planner) addAction(entry *Entry, config, reason string, configureArgs, globalFlags []string) {
	if entry.Actions == nil {
		entry.Actions = map[string]*BuildAction{}
	}
	final, err := cfgargs.Canonicalize(append(append([]string(nil), configureArgs...), globalFlags...))
	if err != nil {
		final = append(append([]string(nil), configureArgs...), globalFlags...)
	}
	if a, ok := entry.Actions[config]; ok {
		a.Reasons = append(a.Reasons, reason)
		return
	}
	entry.Actions[config] = &BuildAction{Reasons: []string{reason}, FinalArgs: final}
}

func (p *Planner) cloneRequest(ctx context.Context, req Request, cloneDir string) error {
	if dirExists(cloneDir) {
		return cmakexerr.Plannerf(req.Name, "clone directory %q already exists with unrelated content", cloneDir)
	}
	if err := p.VCS.Clone(ctx, vcs.CloneParams{URL: req.URL, Branch: req.Ref, Depth: depthFor(req)}, cloneDir); err != nil {
		return cmakexerr.ExternalToolf(req.Name, "", "clone", err, "clone %q", req.URL)
	}
	p.Logger.Info("cloned package", "name", req.Name, "url", req.URL, "ref", req.Ref)
	return nil
}

// cloneAtCommit re-clones a package at a pinned commit identity (an
// installed commit, not necessarily a named ref any server will accept
// directly), using the shallow-clone resolution sequence instead of a
// plain branch clone.
func (p *Planner) cloneAtCommit(ctx context.Context, url, commit, target string) error {
	if err := p.VCS.ResolveAndClone(ctx, url, commit, target); err != nil {
		return cmakexerr.ExternalToolf("", "", "clone", err, "clone %q at %s", url, commit)
	}
	return nil
}

func depthFor(req Request) int {
	if req.Shallow {
		return 1
	}
	return 0
}

func (p *Planner) commitOf(ctx context.Context, cloneDir string) (string, error) {
	status, err := p.VCS.Status(ctx, cloneDir)
	if err != nil {
		return "", err
	}
	if !status.CleanOrUntrackedOnly() {
		return vcs.UncommittedSentinel, nil
	}
	sha, err := p.VCS.RevParse(ctx, cloneDir, "HEAD")
	if err != nil {
		return "", err
	}
	return sha, nil
}

// resolveRef resolves req.Ref against the remote, falling back to a
// local rev-parse when the ref is commit-identity-like and ls-remote
// reports not-found (spec §4.G "Strict-commit policy formalized").
func (p *Planner) resolveRef(ctx context.Context, req Request, cloneDir string) (string, error) {
	ref := req.Ref
	if ref == "" {
		ref = "HEAD"
	}
	status, sha, err := p.VCS.LsRemote(ctx, req.URL, ref)
	if err != nil {
		return "", err
	}
	if status == vcs.LsRemoteResolved {
		return sha, nil
	}
	if vcs.ShaLike(ref) {
		local, err := p.VCS.RevParse(ctx, cloneDir, ref)
		if err != nil {
			return "", err
		}
		if local != "" {
			return local, nil
		}
	}
	return "", cmakexerr.Plannerf(req.Name, "could not resolve ref %q against %q", ref, req.URL)
}

func (p *Planner) verifyCloneMatchesRequest(ctx context.Context, req Request, cloneDir string) error {
	resolved, err := p.resolveRef(ctx, req, cloneDir)
	if err != nil {
		return err
	}
	cloned, err := p.commitOf(ctx, cloneDir)
	if err != nil {
		return err
	}
	if cloned != resolved {
		return cmakexerr.Plannerf(req.Name,
			"strict commit policy: directory %q should be reset to %s (currently %s)",
			cloneDir, resolved, cloned)
	}
	return nil
}

// dependencyFingerprintReason is one (config, rebuild reason) pair
// produced by a dependency whose current installed fingerprint no
// longer matches what was recorded the last time this package built
// against it.
type dependencyFingerprintReason struct {
	config string
	text   string
}

// dependencyFingerprintReasons compares, for every configuration in
// configs, record's recorded per-dependency fingerprints against each
// dependency's current installed fingerprint (spec §4.G dependency
// propagation: a dependency that changed since the last successful
// build of this package forces a rebuild, even though this package's
// own commit and configure flags are unchanged).
func (p *Planner) dependencyFingerprintReasons(record installdb.Record, configs []string) []dependencyFingerprintReason {
	var reasons []dependencyFingerprintReason
	for _, dep := range record.Dependencies {
		depRecord, found, err := p.DB.TryGet(dep)
		if err != nil || !found {
			continue
		}
		currentFP := installdb.Fingerprint(depRecord)
		for _, config := range configs {
			cfgEntry, ok := record.Configs[config]
			if !ok {
				continue
			}
			oldFP, ok := anyValue(cfgEntry.DependencyFingerprints[dep])
			if ok && oldFP == currentFP {
				continue
			}
			reasons = append(reasons, dependencyFingerprintReason{
				config: config,
				text:   fmt.Sprintf("dependency %s fingerprint changed from %s to %s", dep, oldFP, currentFP),
			})
		}
	}
	return reasons
}

// anyValue returns an arbitrary value from m (every entry a package
// records for one dependency carries the same fingerprint string, one
// per the dependency's own configuration) and whether m was non-empty.
func anyValue(m map[string]string) (string, bool) {
	for _, v := range m {
		return v, true
	}
	return "", false
}

func firstKey(m map[string]installdb.ConfigEntry) string {
	for k := range m {
		return k
	}
	return ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
