package bridge

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrUnknownVersion is returned for API versions the bridge never shipped.
var ErrUnknownVersion = errors.New("bridge: unknown API version")

// ErrUnsupported is returned when an operation needs a newer API version
// than the bridge was created with.
var ErrUnsupported = errors.New("bridge: not supported by this API version")

// Version is a bridge API version. Behavior differences between versions
// are gated on it instead of living in separate types.
type Version struct {
	Major int
	Minor int
}

// Supported lists the API versions New accepts, oldest first.
var Supported = []Version{{1, 0}, {1, 2}, {1, 3}, {1, 4}, {1, 5}}

// Latest is the newest supported API version.
var Latest = Supported[len(Supported)-1]

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor int) bool {
	return v.Major > major || v.Major == major && v.Minor >= minor
}

// Valid reports whether v is one of the Supported versions.
func (v Version) Valid() bool { return slices.Contains(Supported, v) }

// ParseVersion parses "major.minor" and checks it is supported.
func ParseVersion(s string) (Version, error) {
	majStr, minStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	major, err := strconv.Atoi(majStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	minor, err := strconv.Atoi(minStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	v := Version{major, minor}
	if !v.Valid() {
		return Version{}, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
	}
	return v, nil
}

// requires returns ErrUnsupported unless v is at least major.minor.
func (v Version) requires(major, minor int, what string) error {
	if v.AtLeast(major, minor) {
		return nil
	}
	return fmt.Errorf("%w: import starside %d.%d or newer to use %s", ErrUnsupported, major, minor, what)
}
