package functional

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cmakex/cmakex/internal/installdb"
	"github.com/cmakex/cmakex/internal/layout"
)

func aPackage(ctx context.Context, name string) (context.Context, error) {
	state := getState(ctx)
	pkg, err := newGitPackage(state.repoRoot, name)
	if err != nil {
		return ctx, err
	}
	state.packages[name] = pkg
	return ctx, nil
}

// packageDependsOn rewrites depender's deps.cmake to add_pkg the
// dependency by its fixture URL, then recommits — it must run before
// the depender is ever cloned by a scenario step.
func packageDependsOn(ctx context.Context, depender, dependency string) (context.Context, error) {
	state := getState(ctx)
	dep, ok := state.packages[dependency]
	if !ok {
		return ctx, fmt.Errorf("package %q has no fixture; declare it with a prior step", dependency)
	}
	pkg, ok := state.packages[depender]
	if !ok {
		return ctx, fmt.Errorf("package %q has no fixture; declare it with a prior step", depender)
	}
	if err := pkg.writeFile("deps.cmake", dependsOnScript(dependency, dep.dir)); err != nil {
		return ctx, err
	}
	if err := pkg.commit("declare dependency on " + dependency); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// packageDependsOnWithArg is packageDependsOn with an explicit
// CMAKE_ARGS value, so a scenario can rewrite the same depender twice
// with different configure flags.
func packageDependsOnWithArg(ctx context.Context, depender, dependency, cmakeArg string) (context.Context, error) {
	state := getState(ctx)
	dep, ok := state.packages[dependency]
	if !ok {
		return ctx, fmt.Errorf("package %q has no fixture; declare it with a prior step", dependency)
	}
	pkg, ok := state.packages[depender]
	if !ok {
		return ctx, fmt.Errorf("package %q has no fixture; declare it with a prior step", depender)
	}
	if err := pkg.writeFile("deps.cmake", dependsOnScriptWithArg(dependency, dep.dir, cmakeArg)); err != nil {
		return ctx, err
	}
	if err := pkg.commit("declare dependency on " + dependency + " with cmake arg " + cmakeArg); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func packagesRemoteAdvances(ctx context.Context, name string) (context.Context, error) {
	state := getState(ctx)
	pkg, ok := state.packages[name]
	if !ok {
		return ctx, fmt.Errorf("package %q has no fixture", name)
	}
	_, err := pkg.advance()
	return ctx, err
}

func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	command = substitutePackagePaths(command, state.packages)

	args := splitCommandLine(command)
	if len(args) == 0 {
		return ctx, fmt.Errorf("empty command")
	}
	if args[0] != "cmakex" {
		return ctx, fmt.Errorf(`commands must start with "cmakex", got %q`, args[0])
	}
	args = append(args[1:], "--binary-dir", state.rootDir)

	cmd := exec.Command(state.binPath, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}
	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theInstallRecordHasNConfigurations(ctx context.Context, name string, n int) error {
	state := getState(ctx)
	l := layout.New(state.rootDir)
	db := installdb.New(l.InstalledDir())
	record, found, err := db.TryGet(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("package %q has no install record", name)
	}
	if len(record.Configs) != n {
		return fmt.Errorf("expected %d configurations for %q, got %d (%v)", n, name, len(record.Configs), record.Configs)
	}
	return nil
}

func theInstallRecordDoesNotExist(ctx context.Context, name string) error {
	state := getState(ctx)
	l := layout.New(state.rootDir)
	db := installdb.New(l.InstalledDir())
	_, found, err := db.TryGet(name)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("expected no install record for %q", name)
	}
	return nil
}
