// Package authz answers "what may this request do" on top of the
// session user that auth injects.
package authz

import (
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/saecell/labportal/internal/app/system/auth"
)

// Role is the closed set of permission roles a member can hold. Parsing
// anything else yields RoleVisitor, so an unrecognized value in a stale
// session fails closed.
type Role string

const (
	RoleVisitor    Role = "visitor"
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole maps a stored role string onto the closed set.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleMember:
		return RoleMember
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	}
	return RoleVisitor
}

// UserCtx returns the user's role, name, ObjectID and a found flag.
// A missing user or malformed ID yields (RoleVisitor, "", NilObjectID,
// false), so ok=true always means a valid authenticated member.
func UserCtx(r *http.Request) (role Role, name string, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return RoleVisitor, "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return RoleVisitor, "", primitive.NilObjectID, false
	}
	return ParseRole(u.Role), u.Name, userID, true
}

// IsAdmin reports whether the current user is an admin or superadmin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == RoleAdmin || role == RoleSuperAdmin)
}

// IsSuperAdmin reports whether the current user is a superadmin.
func IsSuperAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleSuperAdmin
}

// IsMember reports whether the current user holds the plain member role.
func IsMember(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleMember
}

// CanManageMembers reports whether the current user may approve, reject
// or edit other members. Same set as IsAdmin today, named for intent.
func CanManageMembers(r *http.Request) bool {
	return IsAdmin(r)
}

// CanCloseLab reports whether the current user may force the lab closed
// regardless of who is still checked in.
func CanCloseLab(r *http.Request) bool {
	return IsAdmin(r)
}
