package enums

import "testing"

func TestOrderStatusTransitionTable(t *testing.T) {
	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderStatusDraft:      {OrderStatusPending: true},
		OrderStatusPending:    {OrderStatusApproved: true, OrderStatusRejected: true},
		OrderStatusApproved:   {OrderStatusInAssembly: true, OrderStatusRejected: true},
		OrderStatusInAssembly: {OrderStatusShipped: true},
		OrderStatusShipped:    {OrderStatusDelivered: true},
		OrderStatusDelivered:  {OrderStatusCompleted: true},
	}

	for _, from := range AllOrderStatuses() {
		for _, to := range AllOrderStatuses() {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s: expected %v got %v", from, to, want, got)
			}
		}
	}
}

func TestOrderStatusPredicates(t *testing.T) {
	if !OrderStatusDraft.IsEditable() || !OrderStatusPending.IsEditable() {
		t.Fatalf("draft and pending orders must be editable")
	}
	if OrderStatusApproved.IsEditable() || OrderStatusCompleted.IsEditable() {
		t.Fatalf("approved and completed orders must not be editable")
	}
	if !OrderStatusRejected.IsDeletable() || OrderStatusShipped.IsDeletable() {
		t.Fatalf("unexpected deletable state")
	}
	if OrderStatusPending.HoldsReservation() || !OrderStatusApproved.HoldsReservation() {
		t.Fatalf("only approved and later orders hold reservations")
	}
	if !OrderStatusCompleted.IsTerminal() || !OrderStatusRejected.IsTerminal() {
		t.Fatalf("completed and rejected are terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("approved"); err == nil {
		t.Fatalf("expected lowercase status to be rejected")
	}
	got, err := ParseOrderStatus("IN_ASSEMBLY")
	if err != nil || got != OrderStatusInAssembly {
		t.Fatalf("unexpected parse result %q err=%v", got, err)
	}
}

func TestNotificationForStatus(t *testing.T) {
	if n, ok := NotificationForStatus(OrderStatusShipped); !ok || n != NotificationOrderShipped {
		t.Fatalf("expected shipped notification, got %q", n)
	}
	if _, ok := NotificationForStatus(OrderStatusDraft); ok {
		t.Fatalf("draft has no notification")
	}
}
