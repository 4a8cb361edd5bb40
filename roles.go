package enroll

// Role is the registered user's role
type Role string

const (
	// RoleChanceryOffice administers the diocese registry
	RoleChanceryOffice Role = "chancery_office"
	// RoleParishSecretary manages a single parish's records
	RoleParishSecretary Role = "parish_secretary"
	// RoleMuseum curates heritage-church museum entries
	RoleMuseum Role = "museum"
)

// PageCategory groups protected pages so access rules live in one table
// instead of per-page string checks.
type PageCategory string

const (
	// PageChancery covers diocese-wide administration pages
	PageChancery PageCategory = "chancery"
	// PageParish covers parish registry pages
	PageParish PageCategory = "parish"
	// PageMuseum covers museum catalog pages
	PageMuseum PageCategory = "museum"
	// PageAnnouncements covers the shared announcements board
	PageAnnouncements PageCategory = "announcements"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleChanceryOffice, RoleParishSecretary, RoleMuseum:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleChanceryOffice,
		RoleParishSecretary,
		RoleMuseum,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// SelfRegisterRoles are the roles allowed to register without an invitation.
// They start pending and wait for chancery review.
func SelfRegisterRoles() []Role {
	return []Role{RoleMuseum}
}

// InitialStatusFor derives the profile status written at registration time.
// Invite-completed roles are approved by virtue of the valid invite.
func InitialStatusFor(role Role, invited bool) ProfileStatus {
	if invited {
		return ProfileStatusApproved
	}
	switch role {
	case RoleParishSecretary:
		// parish secretaries only enter through invitations
		return ProfileStatusPending
	default:
		return ProfileStatusPending
	}
}

// pagePolicy maps an approved role to the page categories it may see.
// Pending profiles get no categories at all; the gate turns that into
// the awaiting-approval view when the role would otherwise match.
var pagePolicy = map[Role]map[PageCategory]struct{}{
	RoleChanceryOffice: {
		PageChancery:      {},
		PageParish:        {},
		PageMuseum:        {},
		PageAnnouncements: {},
	},
	RoleParishSecretary: {
		PageParish:        {},
		PageAnnouncements: {},
	},
	RoleMuseum: {
		PageMuseum:        {},
		PageAnnouncements: {},
	},
}

// AllowedCategories returns the page categories a (role, status) pair may
// access. Only approved profiles get any access.
func AllowedCategories(role Role, status ProfileStatus) []PageCategory {
	if status != ProfileStatusApproved {
		return nil
	}
	categories, ok := pagePolicy[role]
	if !ok {
		return nil
	}
	out := make([]PageCategory, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	return out
}

// RoleAllowsCategory reports whether the role, once approved, may access
// pages in the given category.
func RoleAllowsCategory(role Role, category PageCategory) bool {
	categories, ok := pagePolicy[role]
	if !ok {
		return false
	}
	_, ok = categories[category]
	return ok
}

// RolesForCategory lists the roles whose approved profiles may access the
// category. Used to build per-page required-role sets from the same table.
func RolesForCategory(category PageCategory) []Role {
	var out []Role
	for _, role := range GetAllRoles() {
		if RoleAllowsCategory(role, category) {
			out = append(out, role)
		}
	}
	return out
}

// ApprovalContact is the role-specific contact surfaced on the
// awaiting-approval view.
func ApprovalContact(role Role) string {
	switch role {
	case RoleParishSecretary:
		return "Contact your chancery office to check on your invitation."
	case RoleMuseum:
		return "Your registration is reviewed by the diocese heritage commission."
	case RoleChanceryOffice:
		return "Contact the system administrator for activation."
	default:
		return "Contact your diocese administrator."
	}
}
