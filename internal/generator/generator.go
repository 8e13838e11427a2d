// Package generator implements the multi-config coordinator (spec §4.I):
// a closed-set recognizer for native build tool generators that produce
// all configurations from a single binary directory.
package generator

import "strings"

// multiConfigPrefixes lists the generator name prefixes that are known
// to be multi-configuration. Matching is by prefix so that generator
// identities carrying a toolset suffix (e.g. "Visual Studio 17 2022")
// still match.
var multiConfigPrefixes = []string{
	"Visual Studio",
	"Xcode",
	"Ninja Multi-Config",
}

// IsMultiConfig reports whether generator is a multi-configuration
// generator: one whose single binary directory contains all
// configurations.
func IsMultiConfig(generator string) bool {
	g := strings.TrimSpace(generator)
	for _, prefix := range multiConfigPrefixes {
		if strings.HasPrefix(g, prefix) {
			return true
		}
	}
	return false
}

// NeedsPerConfigBinaryDirs reports whether, given the user's request for
// per-configuration binary directories and the generator in effect, the
// resulting layout must actually separate configurations into distinct
// binary directories. Per spec §4.A: true iff the user requested it AND
// the generator is single-configuration; multi-configuration generators
// always force this to false, since they already discriminate
// configurations within one binary directory.
func NeedsPerConfigBinaryDirs(requested bool, gen string) bool {
	if IsMultiConfig(gen) {
		return false
	}
	return requested
}
