package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Bump is the semantic-version impact class of a change.
// The zero value is None, and the ordering None < Patch < Minor < Major
// is relied on by Max.
type Bump int

const (
	None Bump = iota
	Patch
	Minor
	Major
)

var bumpNames = map[Bump]string{
	None:  "none",
	Patch: "patch",
	Minor: "minor",
	Major: "major",
}

func (b Bump) String() string {
	if name, ok := bumpNames[b]; ok {
		return name
	}
	return fmt.Sprintf("bump(%d)", int(b))
}

// ParseBump parses a severity name as written in intent records.
func ParseBump(s string) (Bump, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "patch":
		return Patch, nil
	case "minor":
		return Minor, nil
	case "major":
		return Major, nil
	}
	return None, fmt.Errorf("unknown bump severity %q", s)
}

// Max returns the higher of two severities. None is the identity.
func Max(a, b Bump) Bump {
	if a > b {
		return a
	}
	return b
}

// MalformedVersionError reports a version string Increment could not parse.
type MalformedVersionError struct {
	Version string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q: want numeric major.minor.patch", e.Version)
}

// versionPattern captures major.minor.patch plus any trailing qualifier
// ("-SNAPSHOT", ".Final", ...) verbatim.
var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(.*)$`)

// Increment applies a bump to a dot-separated version string.
// Major zeroes minor and patch, Minor zeroes patch. A qualifier after the
// third component is reattached untouched. Callers must special-case None;
// it never reaches this function on a valid code path.
func Increment(version string, b Bump) (string, error) {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return "", &MalformedVersionError{Version: version}
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	qualifier := m[4]

	switch b {
	case Major:
		major, minor, patch = major+1, 0, 0
	case Minor:
		minor, patch = minor+1, 0
	case Patch:
		patch++
	default:
		return "", fmt.Errorf("cannot increment %q with severity %s", version, b)
	}

	return fmt.Sprintf("%d.%d.%d%s", major, minor, patch, qualifier), nil
}
