// Package vcs implements a narrow revision-control adapter over an
// external git client, invoked as an opaque subprocess through
// internal/procexec. The git client itself — which binary, which
// version — is out of scope; this package only specifies the contract
// cmakex needs from it.
package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/cmakex/cmakex/internal/buildinfo"
	"github.com/cmakex/cmakex/internal/procexec"
)

// Git is a client bound to one resolved git binary, resolved once and
// reused.
type Git struct {
	binary string

	onceErr  error
	resolved sync.Once
}

// New returns a Git client. The binary is looked up lazily, on first
// use, via exec.LookPath("git").
func New() *Git {
	return &Git{}
}

func (g *Git) path() (string, error) {
	g.resolved.Do(func() {
		p, err := exec.LookPath("git")
		if err != nil {
			g.onceErr = fmt.Errorf("git not found in PATH: %w", err)
			return
		}
		g.binary = p
	})
	return g.binary, g.onceErr
}

// gitEnv is computed once: the caller's environment plus the
// cmakex User-Agent git presents to HTTP(S) remotes.
var gitEnv = sync.OnceValue(func() []string {
	return append(os.Environ(), "GIT_HTTP_USER_AGENT="+buildinfo.UserAgent())
})

func (g *Git) run(ctx context.Context, dir string, args ...string) (int, string, string, error) {
	path, err := g.path()
	if err != nil {
		return -1, "", "", err
	}

	var stdout, stderr []string
	status, err := procexec.Exec(ctx, path, args, procexec.Options{
		Dir:      dir,
		Env:      gitEnv(),
		OnStdout: func(line string) { stdout = append(stdout, line) },
		OnStderr: func(line string) { stderr = append(stderr, line) },
	})
	return status, strings.Join(stdout, "\n"), strings.Join(stderr, "\n"), err
}

// CloneParams describes how to clone a remote (spec §3 "Clone
// parameters").
type CloneParams struct {
	URL     string
	Branch  string // requested ref; empty means default branch tip
	Depth   int    // 0 means full depth
	Recurse bool   // recurse into submodules
}

// Clone clones url into target. It fails with a wrapped "clone failed"
// error on any non-zero exit status, per spec §4.C.
func (g *Git) Clone(ctx context.Context, params CloneParams, target string) error {
	args := []string{"clone"}
	if params.Branch != "" {
		args = append(args, "--branch", params.Branch)
	}
	if params.Depth > 0 {
		args = append(args, "--depth", fmt.Sprintf("%d", params.Depth))
	}
	if params.Recurse {
		args = append(args, "--recurse-submodules")
	}
	args = append(args, params.URL, target)

	status, _, stderr, err := g.run(ctx, "", args...)
	if err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}
	if status != 0 {
		return fmt.Errorf("clone failed: git exited with status %d: %s", status, stderr)
	}
	return nil
}

// Checkout checks out ref in target and returns the client's exit
// status verbatim; the caller decides whether it's a failure.
func (g *Git) Checkout(ctx context.Context, target, ref string) (int, error) {
	status, _, _, err := g.run(ctx, target, "checkout", ref)
	return status, err
}

// LsRemoteStatus classifies the outcome of LsRemote.
type LsRemoteStatus int

const (
	LsRemoteResolved LsRemoteStatus = iota
	LsRemoteNotFound
	LsRemoteError
)

// LsRemote asks the remote for the commit identity ref resolves to,
// without requiring a local clone.
func (g *Git) LsRemote(ctx context.Context, url, ref string) (LsRemoteStatus, string, error) {
	status, stdout, stderr, err := g.run(ctx, "", "ls-remote", url, ref)
	if err != nil {
		return LsRemoteError, "", err
	}
	if status != 0 {
		return LsRemoteError, "", fmt.Errorf("git ls-remote failed: %s", stderr)
	}
	line := strings.TrimSpace(stdout)
	if line == "" {
		return LsRemoteNotFound, "", nil
	}

	// ls-remote can report multiple matches (e.g. a tag and its
	// dereferenced ^{} commit, or an ambiguous short ref); take the
	// first column of the first line only when every resolved sha
	// agrees, otherwise treat it as not-found (the planner falls
	// through to rev_parse for a more specific lookup).
	shas := map[string]bool{}
	for _, l := range strings.Split(line, "\n") {
		fields := strings.Fields(l)
		if len(fields) < 1 {
			continue
		}
		shas[fields[0]] = true
	}
	if len(shas) != 1 {
		return LsRemoteNotFound, "", nil
	}
	for sha := range shas {
		return LsRemoteResolved, sha, nil
	}
	return LsRemoteNotFound, "", nil
}

// RevParse resolves ref to a commit identity in the local clone at
// dir. Returns an empty string if ref cannot be resolved locally.
func (g *Git) RevParse(ctx context.Context, dir, ref string) (string, error) {
	status, stdout, _, err := g.run(ctx, dir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	if status != 0 {
		return "", nil
	}
	return strings.TrimSpace(stdout), nil
}

// StatusResult classifies a working tree.
type StatusResult struct {
	Lines []string
}

// CleanOrUntrackedOnly reports whether the tree has no modifications to
// tracked files (untracked files are still "clean" for this purpose).
func (s StatusResult) CleanOrUntrackedOnly() bool {
	for _, l := range s.Lines {
		if len(l) >= 2 && l[0] != '?' && l[0] != ' ' {
			return false
		}
		if len(l) >= 2 && l[1] != '?' && l[1] != ' ' {
			return false
		}
	}
	return true
}

// Status runs `git status --porcelain` in dir.
func (g *Git) Status(ctx context.Context, dir string) (StatusResult, error) {
	status, stdout, stderr, err := g.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return StatusResult{}, err
	}
	if status != 0 {
		return StatusResult{}, fmt.Errorf("git status failed: %s", stderr)
	}
	var lines []string
	for _, l := range strings.Split(stdout, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return StatusResult{Lines: lines}, nil
}

// shaLikePattern matches the canonical hex-identity form used by git:
// 7 to 40 lowercase hex characters.
var shaLikePattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// ShaLike reports whether x could be a commit identity: it matches
// the canonical hex form, without consulting any repository. The
// planner asks the remote first and uses this to decide whether a ref
// the remote did not resolve is worth a local rev-parse.
func ShaLike(x string) bool {
	return shaLikePattern.MatchString(strings.ToLower(x))
}

// UncommittedSentinel is the special value used in place of a commit
// identity to indicate a locally modified working tree. It must
// compare as different from every real commit identity, including
// itself, when used for strict-commit comparisons (callers should
// special-case it rather than rely on string equality for that
// property).
const UncommittedSentinel = "<uncommitted>"
