package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
)

func TestActorRequire(t *testing.T) {
	viewer := Actor{UserID: uuid.New(), Role: enums.RoleViewer}
	if err := viewer.Require(enums.PermInventoryView); err != nil {
		t.Fatalf("viewer should see inventory: %v", err)
	}
	err := viewer.Require(enums.PermOrdersApprove)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	var anonymous Actor
	if !pkgerrors.IsCode(anonymous.Require(enums.PermInventoryView), pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for missing role")
	}
}

func TestActorRequireMember(t *testing.T) {
	org := uuid.New()
	other := uuid.New()
	actor := Actor{UserID: uuid.New(), OrganizationID: org, Role: enums.RoleOperator}

	if err := actor.RequireMember(other, org); err != nil {
		t.Fatalf("expected membership, got %v", err)
	}
	if !pkgerrors.IsCode(actor.RequireMember(other), pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign org")
	}
	admin := Actor{UserID: uuid.New(), OrganizationID: org, Role: enums.RoleAdmin}
	if err := admin.RequireMember(other); err != nil {
		t.Fatalf("admin bypasses membership: %v", err)
	}
}

func TestActorOutboxRef(t *testing.T) {
	if SystemActor().OutboxRef() != nil {
		t.Fatalf("system actor should not produce an outbox ref")
	}
	actor := Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleLocalManager}
	ref := actor.OutboxRef()
	if ref == nil || ref.OrganizationID == nil || *ref.OrganizationID != actor.OrganizationID {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if !SystemActor().IsSystem() || actor.IsSystem() {
		t.Fatalf("IsSystem mismatch")
	}
}
