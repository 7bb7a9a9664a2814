package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/internal/notifications"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]models.Order, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error

	ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error)
	FindItemByLiterature(ctx context.Context, orderID, literatureID uuid.UUID) (*models.OrderItem, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

// ListFilter narrows order listings. OrganizationID matches either side.
type ListFilter struct {
	Status         *enums.OrderStatus
	OrganizationID *uuid.UUID
	Page           pagination.Params
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type organizationRules interface {
	CanOrderFrom(ctx context.Context, fromID, toID uuid.UUID) (bool, error)
}

type literatureLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Literature, error)
}

type inventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Consume(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Adjust(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

type entryRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry *models.Transaction) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transitionObserver interface {
	ObserveTransition(from, to string)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, event notifications.Event)
}
