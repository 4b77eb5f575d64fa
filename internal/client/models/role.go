package models

// Role is a membership level on a shared profile.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleCaregiver Role = "caregiver_editor"
	RolePatient   Role = "patient_mark_only"
	RoleViewer    Role = "viewer"
)

// ParseRole decodes a stored role string. Unknown values resolve to
// RoleViewer so that a foreign writer with a newer role vocabulary degrades
// to read-only access instead of failing the whole profile.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleOwner, RoleCaregiver, RolePatient, RoleViewer:
		return Role(s)
	default:
		return RoleViewer
	}
}

func (r Role) CanEditMedications() bool {
	return r == RoleOwner || r == RoleCaregiver
}

func (r Role) CanMarkIntakes() bool {
	return r == RoleOwner || r == RoleCaregiver || r == RolePatient
}

func (r Role) CanManageMembers() bool {
	return r == RoleOwner
}

func (r Role) CanDeleteProfile() bool {
	return r == RoleOwner
}
