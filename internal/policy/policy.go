// Package policy decides whether an acting user may modify a post, comment,
// or profile. Ownership and the admin role collapse into one predicate.
package policy

type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// Normalize maps unknown role strings to the least-privileged role.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAuthor, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}

// CanModify reports whether the actor may edit or delete content owned by
// ownerID. Owners and admins can, nobody else. A false result is a refusal,
// not an error.
func CanModify(actorID string, actorRole Role, ownerID string) bool {
	if actorID == "" {
		return false
	}
	return actorID == ownerID || actorRole == RoleAdmin
}
