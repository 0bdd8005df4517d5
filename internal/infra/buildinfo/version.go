package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X". Empty or default values are filled from the
// VCS stamp the go command embeds, when there is one.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	Modified  bool   `json:"modified,omitempty" yaml:"modified,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

var readBuildInfo = debug.ReadBuildInfo

var (
	infoOnce sync.Once
	info     Info
)

// Get returns the build information. The result is computed once.
func Get() Info {
	infoOnce.Do(func() { info = collect() })
	return info
}

func collect() Info {
	in := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	bi, ok := readBuildInfo()
	if !ok {
		return finish(in)
	}
	if in.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		in.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if in.Commit == "" {
				in.Commit = s.Value
			}
		case "vcs.time":
			if in.BuildTime == "" {
				in.BuildTime = s.Value
			}
		case "vcs.modified":
			in.Modified = s.Value == "true"
		}
	}
	return finish(in)
}

func finish(in Info) Info {
	if len(in.Commit) > 12 {
		in.Commit = in.Commit[:12]
	}
	if in.Commit == "" {
		in.Commit = "unknown"
	}
	return in
}

// String renders the version as "v1.2.0 (abc123def456)", with the build
// time appended when known.
func String() string {
	in := Get()
	s := in.Version + " (" + in.Commit
	if in.Modified {
		s += "+dirty"
	}
	s += ")"
	if in.BuildTime != "" {
		s += " built at " + in.BuildTime
	}
	return s
}

// Banner is the -v line for program.
func Banner(program string) string {
	return program + " " + String()
}
