package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// OrderCreatedEvent announces a new draft order.
type OrderCreatedEvent struct {
	OrderID            uuid.UUID `json:"order_id"`
	OrderNumber        string    `json:"order_number"`
	FromOrganizationID uuid.UUID `json:"from_organization_id"`
	ToOrganizationID   uuid.UUID `json:"to_organization_id"`
	CreatedBy          uuid.UUID `json:"created_by"`
}

// OrderStatusChangedEvent is emitted for every committed status transition.
type OrderStatusChangedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	OrderNumber        string            `json:"order_number"`
	FromOrganizationID uuid.UUID         `json:"from_organization_id"`
	ToOrganizationID   uuid.UUID         `json:"to_organization_id"`
	PreviousStatus     enums.OrderStatus `json:"previous_status"`
	Status             enums.OrderStatus `json:"status"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	ChangedBy          uuid.UUID         `json:"changed_by"`
	ChangedAt          time.Time         `json:"changed_at"`
}

// OrderDeletedEvent records the removal of a draft, pending or rejected order.
type OrderDeletedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	DeletedBy   uuid.UUID         `json:"deleted_by"`
}

// InventoryTransferredEvent describes a stock move between two organizations.
type InventoryTransferredEvent struct {
	FromOrganizationID uuid.UUID `json:"from_organization_id"`
	ToOrganizationID   uuid.UUID `json:"to_organization_id"`
	LiteratureID       uuid.UUID `json:"literature_id"`
	Quantity           int       `json:"quantity"`
	OutgoingID         uuid.UUID `json:"outgoing_transaction_id"`
	IncomingID         uuid.UUID `json:"incoming_transaction_id"`
	TransferID         uuid.UUID `json:"transfer_id"`
}

// TransactionReversedEvent links a reversing entry to the entry it cancels.
type TransactionReversedEvent struct {
	TransactionID  uuid.UUID                  `json:"transaction_id"`
	ReversalID     uuid.UUID                  `json:"reversal_id"`
	OrganizationID uuid.UUID                  `json:"organization_id"`
	LiteratureID   uuid.UUID                  `json:"literature_id"`
	Quantity       int                        `json:"quantity"`
	Direction      enums.TransactionDirection `json:"direction"`
	TransferID     *uuid.UUID                 `json:"transfer_id,omitempty"`
}

// LowStockDetectedEvent is emitted by the low stock job per record below threshold.
type LowStockDetectedEvent struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	LiteratureID   uuid.UUID `json:"literature_id"`
	Quantity       int       `json:"quantity"`
	Reserved       int       `json:"reserved_quantity"`
	Available      int       `json:"available"`
	Threshold      int       `json:"threshold"`
}

// NotificationRequestedEvent mirrors an in-app notification for external delivery.
type NotificationRequestedEvent struct {
	Type            enums.NotificationType `json:"type"`
	OrganizationIDs []uuid.UUID            `json:"organization_ids"`
	OrderID         *uuid.UUID             `json:"order_id,omitempty"`
	LiteratureID    *uuid.UUID             `json:"literature_id,omitempty"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
}
