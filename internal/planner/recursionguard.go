package planner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmakex/cmakex/internal/cmakexerr"
)

// recursionGuard is the persistent, file-backed stack of package names
// currently being processed (spec §3 "persistent recursion guard"),
// ported from circular_dependency_detector.{h,cpp}. It is combined
// with an in-memory set for O(1) containment checks within one
// process, per spec §4.G step 2 ("a per-run in-memory set... (b) a
// persistent on-disk stack").
type recursionGuard struct {
	path  string
	stack []string
	set   map[string]bool
}

func newRecursionGuard(tmpDir string) (*recursionGuard, error) {
	path := filepath.Join(tmpDir, "dependency_stack.txt")
	g := &recursionGuard{path: path, set: map[string]bool{}}
	if err := g.load(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *recursionGuard) load() error {
	f, err := os.Open(g.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return cmakexerr.Filesystemf(err, "read recursion guard %q", g.path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		g.stack = append(g.stack, line)
		g.set[line] = true
	}
	return scanner.Err()
}

func (g *recursionGuard) save() error {
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return cmakexerr.Filesystemf(err, "create recursion guard directory %q", filepath.Dir(g.path))
	}
	var b strings.Builder
	for _, name := range g.stack {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(g.path, []byte(b.String()), 0o644); err != nil {
		return cmakexerr.Filesystemf(err, "write recursion guard %q", g.path)
	}
	return nil
}

// Contains reports whether name is currently on the guard stack.
func (g *recursionGuard) Contains(name string) bool { return g.set[name] }

// Push records that name is now being processed.
func (g *recursionGuard) Push(name string) error {
	g.stack = append(g.stack, name)
	g.set[name] = true
	return g.save()
}

// Pop removes name from the top of the stack. name must be the
// current top; a mismatch indicates a planner bug, mirroring the
// original implementation's internal-error check.
func (g *recursionGuard) Pop(name string) error {
	if len(g.stack) == 0 || g.stack[len(g.stack)-1] != name {
		top := "(empty)"
		if len(g.stack) > 0 {
			top = g.stack[len(g.stack)-1]
		}
		return cmakexerr.Plannerf(name, "internal error: recursion guard top was %q while popping %q", top, name)
	}
	g.stack = g.stack[:len(g.stack)-1]
	delete(g.set, name)
	return g.save()
}

// ChainSince returns the portion of the stack from name's position to
// the top, followed by name again, forming a human-readable cycle
// (spec §4.G: "reentry... is a circular-dependency error whose message
// is the full chain").
func (g *recursionGuard) ChainSince(name string) []string {
	idx := -1
	for i, s := range g.stack {
		if s == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{name, name}
	}
	chain := append([]string(nil), g.stack[idx:]...)
	return append(chain, name)
}

// CircularDependencyError reports a closed dependency chain.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected ('->' means 'needs'): %s", strings.Join(e.Chain, " -> "))
}
