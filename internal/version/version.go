// Package version holds build metadata set via ldflags.
package version

import (
	"fmt"
	"io"
	"runtime"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns "ouvrt-cameras <version> (<commit>)".
func (i Info) String() string {
	return fmt.Sprintf("ouvrt-cameras %s (%s)", i.Version, i.GitCommit)
}

// Write prints the full build report, one field per line.
func (i Info) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\nbuilt:    %s\ngo:       %s\nplatform: %s\n",
		i, i.BuildDate, i.GoVersion, i.Platform)
	return err
}
