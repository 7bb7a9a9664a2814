package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
)

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.Role
}

// ActorFromClaims maps verified token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, OrganizationID: claims.OrganizationID, Role: claims.Role}
}

// SystemActor is used by background jobs that act without a user.
func SystemActor() Actor {
	return Actor{Role: enums.RoleAdmin}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil && a.Role == enums.RoleAdmin
}

// Require returns FORBIDDEN unless the role grants perm.
func (a Actor) Require(perm enums.Permission) error {
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	if !a.Role.Can(perm) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions").
			WithDetails(map[string]any{"permission": perm})
	}
	return nil
}

// RequireMember returns FORBIDDEN unless the actor is an admin or belongs to
// one of orgIDs.
func (a Actor) RequireMember(orgIDs ...uuid.UUID) error {
	if a.IsAdmin() {
		return nil
	}
	for _, id := range orgIDs {
		if id != uuid.Nil && id == a.OrganizationID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "organization access denied")
}

// OutboxRef converts the actor into the envelope representation.
func (a Actor) OutboxRef() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	ref := &outbox.ActorRef{UserID: a.UserID, Role: a.Role}
	if a.OrganizationID != uuid.Nil {
		org := a.OrganizationID
		ref.OrganizationID = &org
	}
	return ref
}

// UserRef returns the user id as a nullable pointer for audit columns.
func (a Actor) UserRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
