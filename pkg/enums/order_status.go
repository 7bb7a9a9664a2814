package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusDraft      OrderStatus = "DRAFT"
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusInAssembly OrderStatus = "IN_ASSEMBLY"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusRejected   OrderStatus = "REJECTED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusInAssembly,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusRejected,
}

// orderTransitions lists every allowed (current -> requested) edge.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:      {OrderStatusPending},
	OrderStatusPending:    {OrderStatusApproved, OrderStatusRejected},
	OrderStatusApproved:   {OrderStatusInAssembly, OrderStatusRejected},
	OrderStatusInAssembly: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted},
}

// AllOrderStatuses returns a copy of the known statuses in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in a single step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsEditable reports whether line items may still change.
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusDraft || s == OrderStatusPending
}

// IsDeletable reports whether an order in this status may be removed.
func (s OrderStatus) IsDeletable() bool {
	return s == OrderStatusDraft || s == OrderStatusPending || s == OrderStatusRejected
}

// HoldsReservation reports whether stock is reserved for orders in this status.
func (s OrderStatus) HoldsReservation() bool {
	return s == OrderStatusApproved || s == OrderStatusInAssembly || s == OrderStatusShipped || s == OrderStatusDelivered
}

// IsTerminal reports whether no further transition exists.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
