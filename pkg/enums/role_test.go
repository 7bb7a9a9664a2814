package enums

import "testing"

func TestRolePermissionTable(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermUsersManage, true},
		{RoleAdmin, PermOrdersUnlockAny, true},
		{RoleRegionalManager, PermOrdersUnlockAny, true},
		{RoleRegionalManager, PermUsersManage, false},
		{RoleLocalManager, PermOrdersApprove, true},
		{RoleLocalManager, PermOrdersUnlockAny, false},
		{RoleOperator, PermOrdersFulfill, true},
		{RoleOperator, PermOrdersApprove, false},
		{RoleViewer, PermInventoryView, true},
		{RoleViewer, PermOrdersCreate, false},
		{Role("GUEST"), PermInventoryView, false},
	}

	for _, tt := range tests {
		if got := tt.role.Can(tt.perm); got != tt.want {
			t.Fatalf("%s can %s: expected %v got %v", tt.role, tt.perm, tt.want, got)
		}
	}
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	for _, perm := range allPermissions {
		if !RoleAdmin.Can(perm) {
			t.Fatalf("admin missing %s", perm)
		}
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("SUPERUSER"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if r, err := ParseRole("OPERATOR"); err != nil || r != RoleOperator {
		t.Fatalf("unexpected role %q err=%v", r, err)
	}
}

func TestTransactionDirection(t *testing.T) {
	if TransactionDirectionIn.Opposite() != TransactionDirectionOut {
		t.Fatalf("expected IN to flip to OUT")
	}
	if TransactionDirectionOut.Sign() != -1 || TransactionDirectionIn.Sign() != 1 {
		t.Fatalf("unexpected direction signs")
	}
	if d, ok := TransactionTypeIncoming.DefaultDirection(); !ok || d != TransactionDirectionIn {
		t.Fatalf("incoming must default to IN")
	}
	if _, ok := TransactionTypeAdjustment.DefaultDirection(); ok {
		t.Fatalf("adjustments carry no implied direction")
	}
}
