package version

import (
	"runtime/debug"
	"strings"
)

// Set through -ldflags at release time.
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns Version, or the module version when installed with
// "go install ...@vX". Development builds get the embedded VCS revision as a
// suffix. Nothing is executed; the data comes from the binary's build info.
func Resolve() string {
	info, _ := debug.ReadBuildInfo()
	return resolve(Version, Commit, info)
}

// Details is the long form printed by "scribe version".
func Details() string {
	var b strings.Builder
	b.WriteString("scribe v")
	b.WriteString(Resolve())
	if Commit != "unknown" && Commit != "" {
		b.WriteString(" (commit ")
		b.WriteString(Commit)
		if Date != "unknown" && Date != "" {
			b.WriteString(", built ")
			b.WriteString(Date)
		}
		b.WriteString(")")
	}
	return b.String()
}

func resolve(base, commit string, info *debug.BuildInfo) string {
	if base == "" {
		base = "0.0.0"
	}
	if info == nil {
		return base
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}
	// Release builds stamp Commit; only untagged local builds get a suffix.
	if commit != "unknown" && commit != "" {
		return base
	}
	if suffix := vcsSuffix(info.Settings); suffix != "" {
		return base + "-" + suffix
	}
	return base
}

func vcsSuffix(settings []debug.BuildSetting) string {
	var revision string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}
