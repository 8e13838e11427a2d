// Package cfgargs canonicalizes CMake configure arguments and decides
// whether two sets of them are compatible, per the "configure-argument
// canonicalization" component of the planner (spec §4.D). It is a direct
// port of the canonicalization and compatibility rules in the original
// implementation's installdb.cpp (make_canonical_cmake_args,
// is_critical_cmake_arg, incompatible_cmake_args).
package cfgargs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cmakex/cmakex/internal/generator"
)

// singletonFlags are option classes of which only one value may appear
// across a set of arguments; repeating one with a different value is
// a request-level error.
var singletonFlags = []string{"-C", "-G", "-T", "-A"}

// criticalFlags are the flag classes that participate in compatibility
// checks between an installed package and a new request. Benign flags
// (anything else, e.g. --warn-uninitialized) are canonicalized but
// never considered for incompatibility.
var criticalFlags = []string{"-C", "-D", "-U", "-G", "-T", "-A"}

// Canonicalize reduces args to a sorted, deduplicated form: singleton
// flag classes (-C, -G, -T, -A) keep their one value, and -D/-U
// variable (re)definitions collapse to the last one seen for each
// variable name (spec: "last-assignment-wins"). Canonicalize is
// idempotent: Canonicalize(Canonicalize(x)) always equals
// Canonicalize(x), since the second pass sees only the already-reduced
// singleton and variable sets.
func Canonicalize(args []string) ([]string, error) {
	singletonSeen := map[string]string{}
	varLastArg := map[string]string{}
	var out []string

	for _, a := range args {
		matched := false
		for _, flag := range singletonFlags {
			if !strings.HasPrefix(a, flag) {
				continue
			}
			matched = true
			if prev, ok := singletonSeen[flag]; ok {
				sameValue := prev == a
				if !sameValue && flag == "-T" {
					sameValue = generator.ToolsetsEquivalent(prev, a)
				}
				if !sameValue {
					return nil, fmt.Errorf(
						"two different %q options were specified: %q and %q; only one %q option is allowed per build",
						flag, prev, a, flag)
				}
			} else {
				singletonSeen[flag] = a
				out = append(out, a)
			}
			break
		}
		if matched {
			continue
		}

		if strings.HasPrefix(a, "-D") {
			name, err := varNameFromDefine(a)
			if err != nil {
				return nil, err
			}
			varLastArg[name] = a
		} else if strings.HasPrefix(a, "-U") {
			name := strings.TrimPrefix(a, "-U")
			if name == "" {
				return nil, fmt.Errorf("invalid CMAKE_ARG: %s", a)
			}
			varLastArg[name] = a
		} else {
			out = append(out, a)
		}
	}

	for _, a := range varLastArg {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

// varNameFromDefine extracts the variable name from a -D name[:type]=value
// argument.
func varNameFromDefine(a string) (string, error) {
	rest := strings.TrimPrefix(a, "-D")
	idx := strings.IndexAny(rest, ":=")
	if idx < 0 {
		return "", fmt.Errorf("invalid CMAKE_ARG: %s", a)
	}
	return rest[:idx], nil
}

func isCritical(s string) bool {
	for _, flag := range criticalFlags {
		if strings.HasPrefix(s, flag) {
			return true
		}
	}
	return false
}

// forbiddenVarNames are -D variables a package request may never set
// directly; the planner owns these (spec §4.D "Forbidden flags").
var forbiddenVarNames = map[string]bool{
	"CMAKE_INSTALL_PREFIX": true,
	"CMAKE_PREFIX_PATH":    true,
	"CMAKE_MODULE_PATH":    true,
	"CMAKE_BUILD_TYPE":     true,
}

// ValidateRequestArgs rejects any -D definition of a forbidden variable
// name in a package request's configure flags.
func ValidateRequestArgs(args []string) error {
	for _, a := range args {
		if !strings.HasPrefix(a, "-D") {
			continue
		}
		name, err := varNameFromDefine(a)
		if err != nil {
			return err
		}
		if forbiddenVarNames[name] {
			return fmt.Errorf("package requests may not set %s directly (arg: %s)", name, a)
		}
	}
	return nil
}

// Incompatible returns the critical-class arguments that appear in
// exactly one of x or y after canonicalization — the symmetric
// difference, restricted to critical flag classes. An empty result
// means x and y may share one build tree; any installed package whose
// own configure args return a non-empty Incompatible against a new
// request cannot satisfy that request (spec §4.D, §7 planner errors).
func Incompatible(x, y []string) ([]string, error) {
	cx, err := Canonicalize(x)
	if err != nil {
		return nil, err
	}
	cy, err := Canonicalize(y)
	if err != nil {
		return nil, err
	}

	inY := map[string]bool{}
	for _, a := range cy {
		inY[a] = true
	}
	inX := map[string]bool{}
	for _, a := range cx {
		inX[a] = true
	}

	var r []string
	for _, a := range cx {
		if !inY[a] && isCritical(a) {
			r = append(r, a)
		}
	}
	for _, a := range cy {
		if !inX[a] && isCritical(a) {
			r = append(r, a)
		}
	}
	return r, nil
}
