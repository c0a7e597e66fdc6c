package craftd

import "runtime/debug"

// Version reports the VCS revision baked into the binary, falling back
// to the module version when built from a module zip.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	var revision string
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
			break
		}
	}
	if revision == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
		return "unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return revision
}
