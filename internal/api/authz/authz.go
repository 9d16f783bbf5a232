package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleAdmin = "admin"
	RoleCoach = "coach"
	RoleUser  = "user"
)

// Roles lists every assignable role.
var Roles = []string{RoleAdmin, RoleCoach, RoleUser}

type AuthUser struct {
	ID       int64
	Username string
	Role     string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

func ValidRole(role string) bool {
	for _, candidate := range Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether user is a non-nil admin.
func IsAdmin(user *AuthUser) bool {
	return user != nil && user.Role == RoleAdmin
}

// HasRole reports whether user holds one of roles. Admins hold every role.
func HasRole(user *AuthUser, roles ...string) bool {
	if user == nil {
		return false
	}
	if user.Role == RoleAdmin {
		return true
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}

// RequireRole returns ErrUnauthenticated when ctx has no user and
// ErrForbidden when the user holds none of roles.
func RequireRole(ctx context.Context, roles ...string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if len(roles) > 0 && !HasRole(user, roles...) {
		return ErrForbidden
	}
	return nil
}

// CanManage reports whether the requester may act on a resource owned by
// ownerID. Admins may act on anything, everyone else only on their own.
func CanManage(user *AuthUser, ownerID int64) bool {
	if user == nil {
		return false
	}
	return user.Role == RoleAdmin || user.ID == ownerID
}
