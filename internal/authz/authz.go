// Package authz holds the single capability check every escrow operation
// runs before touching an order, dispute or wallet.
package authz

import (
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/google/uuid"
)

// Actor is the authenticated identity handed to the core by the auth layer.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Can reports whether the actor may act on a resource owned by ownerID.
func Can(actor Actor, ownerID uuid.UUID) bool {
	if actor.UserID == uuid.Nil {
		return false
	}
	return actor.IsAdmin() || actor.UserID == ownerID
}

// CanAny is Can over several owners, e.g. an order's buyer and seller.
func CanAny(actor Actor, ownerIDs ...uuid.UUID) bool {
	for _, id := range ownerIDs {
		if Can(actor, id) {
			return true
		}
	}
	return actor.UserID != uuid.Nil && actor.IsAdmin()
}

// Authenticated fails with UNAUTHORIZED when no identity was supplied.
func Authenticated(actor Actor) error {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// Require returns FORBIDDEN unless Can holds.
func Require(actor Actor, ownerID uuid.UUID, msg string) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if !Can(actor, ownerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, msg)
	}
	return nil
}

// RequireAdmin returns FORBIDDEN for non-admin actors.
func RequireAdmin(actor Actor) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

// RequireRole returns FORBIDDEN unless the actor holds one of roles. Admins
// always pass.
func RequireRole(actor Actor, roles ...enums.UserRole) error {
	if err := Authenticated(actor); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
}
