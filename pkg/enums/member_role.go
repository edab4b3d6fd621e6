package enums

import "fmt"

// MemberRole represents what an admin user may do in the dashboard.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleEditor MemberRole = "editor"
	MemberRoleViewer MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleEditor,
	MemberRoleViewer,
}

func (r MemberRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known MemberRole.
func (r MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanWrite reports whether the role may mutate catalog data.
func (r MemberRole) CanWrite() bool {
	return r == MemberRoleAdmin || r == MemberRoleEditor
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
