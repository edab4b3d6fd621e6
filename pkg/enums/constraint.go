package enums

import "fmt"

// ConstraintMode says whether a placement region permits or blocks logos.
type ConstraintMode string

const (
	ConstraintModeAllowed   ConstraintMode = "allowed"
	ConstraintModeForbidden ConstraintMode = "forbidden"
)

func (m ConstraintMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ConstraintMode.
func (m ConstraintMode) IsValid() bool {
	return m == ConstraintModeAllowed || m == ConstraintModeForbidden
}

// ParseConstraintMode converts raw input into a ConstraintMode.
func ParseConstraintMode(value string) (ConstraintMode, error) {
	switch ConstraintMode(value) {
	case ConstraintModeAllowed:
		return ConstraintModeAllowed, nil
	case ConstraintModeForbidden:
		return ConstraintModeForbidden, nil
	}
	return "", fmt.Errorf("invalid constraint mode %q", value)
}
