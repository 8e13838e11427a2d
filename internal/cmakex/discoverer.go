package cmakex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cmakex/cmakex/internal/depscript"
	"github.com/cmakex/cmakex/internal/planner"
)

// DepsScriptFilename is the default name of a package's own dependency
// script, ported from cmakex-types.h's k_deps_script_filename.
const DepsScriptFilename = "deps.cmake"

// ScriptDiscoverer implements planner.Discoverer on top of the
// dependency-script evaluator adapter: it looks for deps.cmake (or a
// caller-supplied override) in a package's source directory, evaluates
// it if present, and translates every recorded add_pkg call into a
// planner.Request.
type ScriptDiscoverer struct {
	Adapter   *depscript.Adapter
	BinaryDir string // the evaluator project's own, already-configured binary directory
}

// Discover implements planner.Discoverer.
func (d *ScriptDiscoverer) Discover(ctx context.Context, sourceDir, scriptOverride string) ([]planner.Request, bool, error) {
	scriptPath := scriptOverride
	if scriptPath == "" {
		candidate := filepath.Join(sourceDir, DepsScriptFilename)
		if _, err := os.Stat(candidate); err != nil {
			return nil, false, nil
		}
		scriptPath = candidate
	}

	calls, err := d.Adapter.Evaluate(ctx, d.BinaryDir, scriptPath)
	if err != nil {
		return nil, false, err
	}

	reqs := make([]planner.Request, 0, len(calls))
	for _, call := range calls {
		req, err := requestFromAddPkgCall(call)
		if err != nil {
			return nil, false, err
		}
		reqs = append(reqs, req)
	}
	return reqs, true, nil
}
