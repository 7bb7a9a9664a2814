package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationOrderSubmitted       NotificationType = "ORDER_SUBMITTED"
	NotificationOrderApproved        NotificationType = "ORDER_APPROVED"
	NotificationOrderRejected        NotificationType = "ORDER_REJECTED"
	NotificationOrderInAssembly      NotificationType = "ORDER_IN_ASSEMBLY"
	NotificationOrderShipped         NotificationType = "ORDER_SHIPPED"
	NotificationOrderDelivered       NotificationType = "ORDER_DELIVERED"
	NotificationOrderCompleted       NotificationType = "ORDER_COMPLETED"
	NotificationLowStock             NotificationType = "LOW_STOCK"
	NotificationPendingOrderReminder NotificationType = "PENDING_ORDER_REMINDER"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderSubmitted,
	NotificationOrderApproved,
	NotificationOrderRejected,
	NotificationOrderInAssembly,
	NotificationOrderShipped,
	NotificationOrderDelivered,
	NotificationOrderCompleted,
	NotificationLowStock,
	NotificationPendingOrderReminder,
}

// notificationByStatus maps the status an order enters to the notification it fires.
var notificationByStatus = map[OrderStatus]NotificationType{
	OrderStatusPending:    NotificationOrderSubmitted,
	OrderStatusApproved:   NotificationOrderApproved,
	OrderStatusRejected:   NotificationOrderRejected,
	OrderStatusInAssembly: NotificationOrderInAssembly,
	OrderStatusShipped:    NotificationOrderShipped,
	OrderStatusDelivered:  NotificationOrderDelivered,
	OrderStatusCompleted:  NotificationOrderCompleted,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationForStatus returns the notification fired when an order enters status.
func NotificationForStatus(status OrderStatus) (NotificationType, bool) {
	n, ok := notificationByStatus[status]
	return n, ok
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
