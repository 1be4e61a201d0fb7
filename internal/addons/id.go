package addons

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bayleafwalker/kiln/internal/semver"
)

// ErrInvalidID is returned for coordinates that cannot be parsed.
var ErrInvalidID = errors.New("invalid addon coordinate")

// ID identifies an addon by namespace-qualified name and version.
//
// IDs are comparable and are used directly as map keys and graph node identities.
type ID struct {
	Name    string
	Version string
}

func NewID(name, version string) ID {
	return ID{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)}
}

// ParseID parses the canonical "name:version" form. The name itself may contain ':'
// (e.g. "org.example:my-addon:1.0.0"); the version follows the last one.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return ID{}, fmt.Errorf("%w: %q, expected name:version", ErrInvalidID, s)
	}
	id := NewID(s[:i], s[i+1:])
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseQuery parses the user-facing "name,version" form. The version part is optional
// and may be a range expression.
func ParseQuery(s string) (name, version string, err error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	switch {
	case len(parts) == 1:
		name = parts[0]
	case len(parts) >= 2:
		// Range expressions such as "[1.0,2.0)" contain commas themselves.
		name, version = parts[0], strings.Join(parts[1:], ",")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: %q, expected name[,version]", ErrInvalidID, s)
	}
	return name, strings.TrimSpace(version), nil
}

// Validate reports whether both parts of the coordinate are usable.
func (id ID) Validate() error {
	if id.Name == "" || id.Version == "" {
		return fmt.Errorf("%w: name and version are required, got %q", ErrInvalidID, id.String())
	}
	if strings.ContainsAny(id.Name, ", \t") || strings.ContainsAny(id.Version, ", \t") {
		return fmt.Errorf("%w: %q contains whitespace or ','", ErrInvalidID, id.String())
	}
	return nil
}

// String returns the canonical "name:version" form.
func (id ID) String() string {
	return id.Name + ":" + id.Version
}

// Less orders IDs by name, then by version precedence. Versions that do not parse, or
// that have equal precedence, fall back to their text.
func (id ID) Less(other ID) bool {
	if id.Name != other.Name {
		return id.Name < other.Name
	}
	a, errA := semver.ParseVersion(id.Version)
	b, errB := semver.ParseVersion(other.Version)
	if errA == nil && errB == nil {
		if c := semver.Compare(a, b); c != 0 {
			return c < 0
		}
	}
	return id.Version < other.Version
}
