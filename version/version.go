package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/carlospaes120/scapegoat/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// EngineVersion versions the metric definitions. Runs stored by an engine
// with a different major version are not comparable with fresh ones.
const EngineVersion = "0.4.0"

// Info contains version and build information
type Info struct {
	CommitHash    string `json:"commit_hash"`
	BuildTime     string `json:"build_time"`
	Version       string `json:"version"`
	EngineVersion string `json:"engine_version"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash:    CommitHash,
		BuildTime:     BuildTime,
		Version:       Version,
		EngineVersion: EngineVersion,
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("scapegoat %s (engine %s, commit %s, built %s)", i.Version, i.EngineVersion, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("scapegoat dev (engine %s, commit %s, built %s)", i.EngineVersion, i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// Compatible reports whether results written by engine version stored can
// be compared with results of the running engine: same major version, and
// for 0.x the same minor.
func Compatible(stored string) (bool, error) {
	return compatible(EngineVersion, stored)
}

func compatible(current, stored string) (bool, error) {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, errors.Wrapf(err, "invalid engine version %s", current)
	}
	if _, err := semver.NewVersion(stored); err != nil {
		return false, errors.WithHint(
			errors.Wrapf(err, "invalid stored engine version %q", stored),
			"the run was not written by scapegoat; delete it with `scapegoat runs rm`",
		)
	}
	// caret ranges pin the minor for 0.x
	constraint, err := semver.NewConstraint("^" + stored)
	if err != nil {
		return false, errors.Wrapf(err, "invalid version constraint ^%s", stored)
	}
	return constraint.Check(cur), nil
}
