// Package depscript implements the dependency-script evaluator adapter
// (spec §4.F): a lazily-materialized CMake helper project that, when
// configured with a script path and scratch file, executes the script
// and records every add_pkg invocation as a tab-separated line. This
// package owns only the adapter's contract; the helper project's
// CMakeLists.txt content is itself generated here, grounded on the
// original implementation's run_deps_script.cpp
// (build_script_executor_cmakelists) and helper_cmake_project.cpp.
package depscript

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cmakex/cmakex/internal/cmakexerr"
	"github.com/cmakex/cmakex/internal/procexec"
)

const (
	commandCacheVar = "__CMAKEX_EXECUTOR_PROJECT_COMMAND"
	addPkgOutVar    = "__CMAKEX_ADD_PKG_OUT"
	cmakeListsName  = "CMakeLists.txt"
)

// AddPkgCall is one add_pkg(...) invocation recorded by the helper
// project while evaluating a script.
type AddPkgCall struct {
	Name string
	Args []string
}

// Adapter owns one helper project directory plus a scratch directory
// for the per-evaluation output file.
type Adapter struct {
	ProjectDir string // _cmakex/deps_script_executor_project
	ScratchDir string // _cmakex/tmp
	LogDir     string // _cmakex/log; empty disables failure-log capture
	CMake      string // path to the cmake binary; resolved by the caller

	configured bool
}

// New returns an Adapter rooted at projectDir/scratchDir, writing
// failure logs under logDir. cmakeBinary is the resolved path (or bare
// name) of the native build tool's driver binary; this package treats
// it as an opaque external tool per spec §1.
func New(projectDir, scratchDir, logDir, cmakeBinary string) *Adapter {
	return &Adapter{ProjectDir: projectDir, ScratchDir: scratchDir, LogDir: logDir, CMake: cmakeBinary}
}

// cmakeListsBody is the fixed content of the helper project, modeled
// line-for-line on build_script_executor_cmakelists: it records every
// add_pkg call as a tab-separated line in the file named by
// __CMAKEX_ADD_PKG_OUT, then includes the caller's script.
const cmakeListsBody = `cmake_minimum_required(VERSION ${CMAKE_VERSION})

if(DEFINED ` + commandCacheVar + `)
    set(command "${` + commandCacheVar + `}")
    unset(` + commandCacheVar + ` CACHE)
endif()

function(add_pkg NAME)
  set(s ${NAME})
  list(LENGTH s l)
  if(NOT l EQUAL 1)
    message(FATAL_ERROR "\"${NAME}\" is an invalid name for a package")
  endif()
  set(line "${NAME}")
  foreach(x IN LISTS ARGN)
    set(line "${line}\t${x}")
  endforeach()
  file(APPEND "${` + addPkgOutVar + `}" "${line}\n")
endfunction()

function(include_build_script path)
  if(NOT IS_ABSOLUTE "${path}")
    set(path "${CMAKE_CURRENT_LIST_DIR}/${path}")
  endif()
  if(NOT EXISTS "${path}")
    message(FATAL_ERROR "Dependency script not found: \"${path}\".")
  endif()
  include("${path}")
endfunction()

if(DEFINED command)
  list(GET command 0 verb)
  if(verb STREQUAL "run")
    list(LENGTH command l)
    if(NOT l EQUAL 3)
      message(FATAL_ERROR "Internal error, invalid command")
    endif()
    list(GET command 1 path)
    list(GET command 2 out)
    if(NOT EXISTS "${out}" OR IS_DIRECTORY "${out}")
      message(FATAL_ERROR "Internal error, the output file \"${out}\" is not an existing file.")
    endif()
    set(` + addPkgOutVar + ` "${out}")
    include_build_script("${path}")
  endif()
endif()
`

// cmakeListsHashHeader is a one-line comment recording the body's hash,
// written above cmakeListsBody. Ensure materializes or replaces the
// project's CMakeLists.txt so that the header always matches the body
// that follows it (resolving the project's two hashing conventions
// from the original source into this single contract; see DESIGN.md).
func cmakeListsHashHeader(body string) string {
	return fmt.Sprintf("# script hash: %d\n", stableHash(body))
}

func stableHash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// Ensure writes the helper project's CMakeLists.txt if it does not
// exist, or if its hash header no longer matches cmakeListsBody (spec
// §4.F step 1: "writes its generated content only if its content-hash
// differs from what is on disk").
func (a *Adapter) Ensure() error {
	if err := os.MkdirAll(a.ProjectDir, 0o755); err != nil {
		return cmakexerr.Filesystemf(err, "create dependency-script executor project directory %q", a.ProjectDir)
	}
	path := filepath.Join(a.ProjectDir, cmakeListsName)
	want := cmakeListsHashHeader(cmakeListsBody) + cmakeListsBody

	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == want {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return cmakexerr.Filesystemf(err, "read dependency-script executor project %q", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(want), 0o644); err != nil {
		return cmakexerr.Filesystemf(err, "write dependency-script executor project %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return cmakexerr.Filesystemf(err, "replace dependency-script executor project %q", path)
	}
	return nil
}

// Configure configures the helper project once per planning run with
// the given singleton flags (generator, toolset, architecture), shared
// with the main project (spec §4.F step 2). Configure or evaluation
// failure is fatal; the raw log is saved under a.LogDir with a
// deterministic name (spec §4.F).
func (a *Adapter) Configure(ctx context.Context, singletonArgs []string, binaryDir string) error {
	if err := a.Ensure(); err != nil {
		return err
	}
	args := append([]string{"-S", a.ProjectDir, "-B", binaryDir}, singletonArgs...)
	capture := procexec.NewCaptureBuilder(nil, nil)
	status, err := capture.Run(ctx, a.CMake, args, "")
	logPath := a.writeFailureLog("depscript-configure.log", capture)
	if err != nil {
		return cmakexerr.ExternalToolf("", "", "evaluate", err, "configure dependency-script executor project")
	}
	if status != 0 {
		return cmakexerr.ExternalToolf("", "", "evaluate", nil,
			"dependency-script executor project configure exited with status %d; see %s", status, logPath)
	}
	a.configured = true
	return nil
}

// Evaluate runs scriptPath through the already-configured helper
// project and returns the add_pkg calls it recorded (spec §4.F step
// 3): truncate the scratch file, reconfigure with a command variable
// pointing at the script, then parse the scratch file back.
func (a *Adapter) Evaluate(ctx context.Context, binaryDir, scriptPath string) ([]AddPkgCall, error) {
	if !a.configured {
		return nil, cmakexerr.Plannerf("", "dependency-script executor project must be configured before Evaluate")
	}
	if err := os.MkdirAll(a.ScratchDir, 0o755); err != nil {
		return nil, cmakexerr.Filesystemf(err, "create dependency-script scratch directory %q", a.ScratchDir)
	}
	outPath := filepath.Join(a.ScratchDir, "add_pkg_out.txt")
	if err := os.WriteFile(outPath, nil, 0o644); err != nil {
		return nil, cmakexerr.Filesystemf(err, "truncate add_pkg scratch file %q", outPath)
	}

	command := fmt.Sprintf("run;%s;%s", scriptPath, outPath)
	args := []string{"-S", a.ProjectDir, "-B", binaryDir, "-D" + commandCacheVar + "=" + command}

	capture := procexec.NewCaptureBuilder(nil, nil)
	status, err := capture.Run(ctx, a.CMake, args, "")
	logPath := a.writeFailureLog(evaluateLogName(scriptPath), capture)
	if err != nil {
		return nil, cmakexerr.ExternalToolf("", "", "evaluate", err, "evaluate dependency script %q", scriptPath)
	}
	if status != 0 {
		return nil, cmakexerr.ExternalToolf("", "", "evaluate", nil,
			"dependency script %q evaluation exited with status %d; see %s", scriptPath, status, logPath)
	}

	return parseAddPkgOut(outPath)
}

// writeFailureLog writes capture's chunks under a.LogDir/name and
// returns the path it wrote (or would have written, for callers that
// only need the path for an error message even when a.LogDir is
// empty). Write failures are swallowed: a log-writing problem must
// never mask the underlying configure/evaluate error.
func (a *Adapter) writeFailureLog(name string, capture *procexec.CaptureBuilder) string {
	if a.LogDir == "" {
		return name
	}
	path := filepath.Join(a.LogDir, name)
	if err := os.MkdirAll(a.LogDir, 0o755); err != nil {
		return path
	}
	f, err := os.Create(path)
	if err != nil {
		return path
	}
	defer f.Close()
	for _, c := range capture.Chunks() {
		fmt.Fprintf(f, "[%s] %s\n", c.Source, c.Text)
	}
	return path
}

// evaluateLogName derives a deterministic log file name from the
// script's own directory, so each package's dependency-script
// evaluation gets a distinct, stable log instead of every package
// overwriting the same file.
func evaluateLogName(scriptPath string) string {
	base := filepath.Base(filepath.Dir(scriptPath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "script"
	}
	return "depscript-evaluate-" + base + ".log"
}

func parseAddPkgOut(path string) ([]AddPkgCall, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmakexerr.Filesystemf(err, "read add_pkg scratch file %q", path)
	}
	defer f.Close()

	var calls []AddPkgCall
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		calls = append(calls, AddPkgCall{Name: fields[0], Args: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, cmakexerr.Filesystemf(err, "scan add_pkg scratch file %q", path)
	}
	return calls, nil
}

// quoteArg quotes an AddPkgCall argument that contains a space or tab
// for display; it has no effect on parsing.
func quoteArg(a string) string {
	if strings.ContainsAny(a, " \t") {
		return strconv.Quote(a)
	}
	return a
}
