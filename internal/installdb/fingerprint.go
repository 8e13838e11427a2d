package installdb

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint computes a stable hash over r's sorted per-configuration
// entries, including each entry's dependency fingerprint map. Equal
// fingerprints mean identical configurations and identical transitive
// dependency fingerprints; the encoding is stdlib crypto/sha256 over a
// field-sorted text form rather than a third-party hashing library
// (see DESIGN.md).
func Fingerprint(r Record) string {
	h := sha256.New()
	writeString(h, r.Name)

	deps := append([]string(nil), r.Dependencies...)
	sort.Strings(deps)
	for _, d := range deps {
		writeString(h, d)
	}

	configs := make([]string, 0, len(r.Configs))
	for c := range r.Configs {
		configs = append(configs, c)
	}
	sort.Strings(configs)

	for _, c := range configs {
		entry := r.Configs[c]
		writeString(h, entry.Configuration)
		writeString(h, entry.RemoteURL)
		writeString(h, entry.ResolvedCommit)
		writeString(h, entry.SourceSubPath)
		writeStringSlice(h, sortedCopy(entry.ConfigureArgs))
		writeStringSlice(h, sortedCopy(entry.FinalConfigureArgs))

		depNames := make([]string, 0, len(entry.DependencyFingerprints))
		for d := range entry.DependencyFingerprints {
			depNames = append(depNames, d)
		}
		sort.Strings(depNames)
		for _, d := range depNames {
			writeString(h, d)
			cfgFps := entry.DependencyFingerprints[d]
			cfgNames := make([]string, 0, len(cfgFps))
			for cn := range cfgFps {
				cfgNames = append(cfgNames, cn)
			}
			sort.Strings(cfgNames)
			for _, cn := range cfgNames {
				writeString(h, cn)
				writeString(h, cfgFps[cn])
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

func writeStringSlice(h interface{ Write([]byte) (int, error) }, ss []string) {
	writeString(h, strings.Join(ss, "\x1f"))
}
