// Package installdb implements the persistent per-package install
// database: the authoritative record of what has been installed, at
// which commit, with which configure flags, and the policy that
// decides whether an installed package satisfies a new request. See
// DESIGN.md for the atomic-write/flock idioms this package builds on.
package installdb

// ConfigEntry is one configuration's installed state within a package
// record (spec: "Installed configuration record").
type ConfigEntry struct {
	Configuration          string                       `toml:"configuration"`
	RemoteURL              string                       `toml:"remote_url"`
	ResolvedCommit         string                       `toml:"resolved_commit"`
	SourceSubPath          string                       `toml:"source_sub_path,omitempty"`
	ConfigureArgs          []string                     `toml:"configure_args"`
	FinalConfigureArgs     []string                     `toml:"final_configure_args"`
	DependencyFingerprints map[string]map[string]string `toml:"dependency_fingerprints,omitempty"` // dep name -> config -> fingerprint
}

// Record is one package's installed state: one entry per installed
// configuration, all sharing the package's direct-dependency list
// (spec: "Installed package record"). Fields are exported for TOML
// round-tripping; callers should treat a Record as immutable after TryGet
// and build a fresh one for Put.
type Record struct {
	Name         string                 `toml:"name"`
	Dependencies []string               `toml:"dependencies,omitempty"`
	Configs      map[string]ConfigEntry `toml:"configs"`
}

// ConfigureArgs returns the shared (non-augmented) configure flags for
// this package, taken from an arbitrary installed configuration — per
// the original model, these do not vary per configuration within one
// package (only the augmented/final set and the resolved commit do).
// Returns nil if the record has no configurations.
func (r Record) ConfigureArgs() []string {
	for _, c := range r.Configs {
		return c.ConfigureArgs
	}
	return nil
}

// HasConfig reports whether config is present in the record.
func (r Record) HasConfig(config string) bool {
	_, ok := r.Configs[config]
	return ok
}

// MissingConfigs returns the entries of requested that are absent from
// r, in the order they appear in requested.
func (r Record) MissingConfigs(requested []string) []string {
	var missing []string
	for _, c := range requested {
		if !r.HasConfig(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
