// Package config resolves cmakex's environment contract for a root
// binary directory; the locations under it are derived by
// internal/layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// EnvPrefixPath is the environment variable naming the search prefix
	// for packages considered "found" outside the managed dependency tree.
	// Its value is persisted into the planner's derived state so that
	// subsequent runs see it unchanged unless explicitly re-set.
	EnvPrefixPath = "CMAKEX_PREFIX_PATH"

	// EnvSubprocessTimeout bounds how long a single configure/build/install
	// invocation may run before cmakex treats it as wedged. The core itself
	// does not enforce this (see spec.md §5). GetSubprocessTimeout parses
	// it; the cmd/cmakex commands run every phase under
	// context.Background() and apply no deadline from it.
	EnvSubprocessTimeout = "CMAKEX_SUBPROCESS_TIMEOUT"

	// DefaultSubprocessTimeout is used when EnvSubprocessTimeout is unset.
	// Zero means "no deadline".
	DefaultSubprocessTimeout = 0 * time.Second
)

// PrefixPathCacheFile is the name of the file, under the cmakex scratch
// directory, that records the CMAKEX_PREFIX_PATH value seen on the last
// run.
const PrefixPathCacheFile = "prefix_path_cache.toml"

// Config holds the absolute root binary directory and the prefix path
// resolved from the process environment.
type Config struct {
	// RootBinaryDir is the main project's binary directory, supplied by
	// the caller (it is not derived; §4.A takes it as an input).
	RootBinaryDir string

	// PrefixPathVector is the parsed, OS-path-separated list from
	// CMAKEX_PREFIX_PATH.
	PrefixPathVector []string
}

// Load resolves configuration for the given root binary directory. It
// reads CMAKEX_PREFIX_PATH from the environment and reconciles it with
// any previously cached value under the root's scratch directory,
// following the "persisted unless explicitly re-set" rule from
// spec.md §6.
func Load(rootBinaryDir string) (*Config, error) {
	abs, err := filepath.Abs(rootBinaryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root binary directory: %w", err)
	}

	cfg := &Config{RootBinaryDir: abs}

	envValue, envSet := os.LookupEnv(EnvPrefixPath)
	cached, cacheErr := readCachedPrefixPath(abs)

	switch {
	case envSet:
		cfg.PrefixPathVector = splitPrefixPath(envValue)
		if err := writeCachedPrefixPath(abs, envValue); err != nil {
			return nil, fmt.Errorf("failed to persist %s: %w", EnvPrefixPath, err)
		}
	case cacheErr == nil && cached != "":
		cfg.PrefixPathVector = splitPrefixPath(cached)
	default:
		cfg.PrefixPathVector = nil
	}

	return cfg, nil
}

func splitPrefixPath(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetSubprocessTimeout returns the configured subprocess timeout from
// CMAKEX_SUBPROCESS_TIMEOUT. If unset or invalid, returns
// DefaultSubprocessTimeout (no deadline) and prints a warning on invalid
// input, matching the validated-env-var-with-fallback idiom used
// throughout this codebase's configuration surface.
func GetSubprocessTimeout() time.Duration {
	envValue := os.Getenv(EnvSubprocessTimeout)
	if envValue == "" {
		return DefaultSubprocessTimeout
	}

	d, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, ignoring\n", EnvSubprocessTimeout, envValue)
		return DefaultSubprocessTimeout
	}
	if d < 0 {
		fmt.Fprintf(os.Stderr, "Warning: %s must not be negative, ignoring\n", EnvSubprocessTimeout)
		return DefaultSubprocessTimeout
	}
	return d
}
