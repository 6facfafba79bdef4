package pluginupdater

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// ParseVersion accepts plugin style versions like v1.2 or 1.2.3 and pads
// missing minor and patch components with zeros.
func ParseVersion(versionString string) (*semver.Version, error) {
	v := strings.TrimPrefix(strings.TrimSpace(versionString), "v")
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	switch strings.Count(core, ".") {
	case 0:
		core += ".0.0"
	case 1:
		core += ".0"
	}
	version, err := semver.NewVersion(core + suffix)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid version: %w", versionString, err)
	}
	return version, nil
}

// IsNewer reports whether remote is a higher version than installed.
func IsNewer(installed, remote string) (bool, error) {
	installedVersion, err := ParseVersion(installed)
	if err != nil {
		return false, err
	}
	remoteVersion, err := ParseVersion(remote)
	if err != nil {
		return false, err
	}
	return installedVersion.LessThan(*remoteVersion), nil
}
