package manifest

import (
	"fmt"
	"strings"
)

// reservedNames cannot name a dependency: they collide with the engine
// table include or with the project's own state directory.
var reservedNames = map[string]bool{
	"nwscript": true,
	".ncs":     true,
	"build":    true,
}

// ValidateDependencyName checks that name can serve as a directory under
// .ncs/deps. Names are compared case-insensitively because include lookup
// may be.
func ValidateDependencyName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("dependency name is empty")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\:`):
		return fmt.Errorf("dependency name %q is not a plain directory name", name)
	case reservedNames[strings.ToLower(name)]:
		return fmt.Errorf("dependency name %q is reserved", name)
	}
	return nil
}
