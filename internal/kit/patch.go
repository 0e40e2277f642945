package kit

import (
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brandintel/internal/resilience"
)

// moduleIDRe is the only validation applied to module names. The module
// catalog varies by persona, so unknown names are accepted; only the
// syntactic shape is checked.
var moduleIDRe = regexp.MustCompile(`^[a-z_]+$`)

// ValidateModuleID checks the syntactic shape of a module id.
func ValidateModuleID(moduleID string) error {
	if !moduleIDRe.MatchString(moduleID) {
		return eris.Wrap(&resilience.ValidationError{
			Field:  "module_id",
			Reason: "must match ^[a-z_]+$",
		}, "kit: module patch")
	}
	return nil
}

// ApplyModulePatch replaces the single top-level section named moduleID with
// patch, wholesale. Every other section is carried over by reference, so
// untouched sections keep their identity. Last writer wins at section
// granularity; callers that need ordering for concurrent patches to the same
// section must serialize.
func ApplyModulePatch(comp map[string]any, moduleID string, patch map[string]any) (map[string]any, error) {
	if err := ValidateModuleID(moduleID); err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(comp)+1)
	for name, sec := range comp {
		merged[name] = sec
	}
	merged[moduleID] = patch
	return merged, nil
}
