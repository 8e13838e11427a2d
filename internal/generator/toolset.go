package generator

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ToolsetVersion extracts and parses the version=<value> component of a
// -T toolset spec (e.g. "-Tversion=14.29,host=x64"). CMake toolset
// versions are commonly two-component (major.minor); a missing patch
// component is coerced to zero so semver.NewVersion accepts it. The
// second return value is false if arg carries no parseable version=
// component.
func ToolsetVersion(arg string) (*semver.Version, bool) {
	rest := strings.TrimPrefix(arg, "-T")
	rest = strings.TrimSpace(rest)

	for _, field := range strings.Split(rest, ",") {
		field = strings.TrimSpace(field)
		value, ok := strings.CutPrefix(field, "version=")
		if !ok {
			continue
		}
		if strings.Count(value, ".") == 1 {
			value += ".0"
		}
		v, err := semver.NewVersion(value)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// ToolsetsEquivalent reports whether two -T toolset specs name the same
// toolset version, tolerating textual differences that don't change the
// semver value (e.g. "version=14.29" vs "version=14.29.0"). It returns
// false if either spec carries no parseable version.
func ToolsetsEquivalent(a, b string) bool {
	va, ok := ToolsetVersion(a)
	if !ok {
		return false
	}
	vb, ok := ToolsetVersion(b)
	if !ok {
		return false
	}
	return va.Equal(vb)
}
