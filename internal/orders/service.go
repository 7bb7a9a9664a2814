package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/internal/notifications"
	"github.com/angelmondragon/literature-backend/internal/transactions"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/db"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

const defaultNumberRetries = 3

// Service exposes the order lifecycle.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*OrderDTO, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[OrderDTO], error)
	UpdateNotes(ctx context.Context, actor auth.Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error)
	Delete(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error
	ChangeStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	Lock(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	Unlock(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error)
	AddItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input ItemInput) (*OrderDTO, error)
	UpdateItem(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID, quantity int) (*OrderDTO, error)
	RemoveItem(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID) (*OrderDTO, error)
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo          Repository
	Organizations organizationRules
	Literature    literatureLookup
	Inventory     inventoryLedger
	Ledger        entryRecorder
	Outbox        outboxPublisher
	Notifications notificationDispatcher
	Metrics       transitionObserver
	Tx            txRunner
	Logger        *logger.Logger
	NumberRetries int
}

type service struct {
	repo          Repository
	organizations organizationRules
	literature    literatureLookup
	inventory     inventoryLedger
	ledger        entryRecorder
	outbox        outboxPublisher
	notifications notificationDispatcher
	metrics       transitionObserver
	tx            txRunner
	logg          *logger.Logger
	retries       int
	newNumber     func(time.Time) (string, error)
	now           func() time.Time
}

// NewService validates deps and builds the order service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Organizations == nil:
		return nil, fmt.Errorf("organization rules required")
	case deps.Literature == nil:
		return nil, fmt.Errorf("literature lookup required")
	case deps.Inventory == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("transaction ledger required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Notifications == nil:
		return nil, fmt.Errorf("notification dispatcher required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	retries := deps.NumberRetries
	if retries <= 0 {
		retries = defaultNumberRetries
	}
	return &service{
		repo:          deps.Repo,
		organizations: deps.Organizations,
		literature:    deps.Literature,
		inventory:     deps.Inventory,
		ledger:        deps.Ledger,
		outbox:        deps.Outbox,
		notifications: deps.Notifications,
		metrics:       deps.Metrics,
		tx:            deps.Tx,
		logg:          deps.Logger,
		retries:       retries,
		newNumber:     generateOrderNumber,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// generateOrderNumber returns ORD-YYYYMMDD-XXXXXX with a random hex suffix.
func generateOrderNumber(at time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf))), nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return nil, err
	}
	if actor.IsSystem() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders require a user actor")
	}
	fromID := actor.OrganizationID
	if input.FromOrganizationID != nil {
		fromID = *input.FromOrganizationID
	}
	if err := actor.RequireMember(fromID); err != nil {
		return nil, err
	}
	if fromID == uuid.Nil || input.ToOrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ordering and fulfilling organizations are required")
	}
	if fromID == input.ToOrganizationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an organization cannot order from itself")
	}
	allowed, err := s.organizations.CanOrderFrom(ctx, fromID, input.ToOrganizationID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization cannot order from the requested supplier").
			WithDetails(map[string]any{
				"from_organization_id": fromID.String(),
				"to_organization_id":   input.ToOrganizationID.String(),
			})
	}

	lines, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                 uuid.New(),
		FromOrganizationID: fromID,
		ToOrganizationID:   input.ToOrganizationID,
		Status:             enums.OrderStatusDraft,
		CreatedBy:          actor.UserID,
		TotalAmount:        orderTotal(lines),
		Notes:              input.Notes,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.insertWithNumber(ctx, tx, order); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		for i := range lines {
			lines[i].ID = uuid.New()
			lines[i].OrderID = order.ID
			if err := repo.CreateItem(ctx, &lines[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:      enums.EventOrderCreated,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			OrganizationID: &order.FromOrganizationID,
			Actor:          actor.OutboxRef(),
			Data: payloads.OrderCreatedEvent{
				OrderID:            order.ID,
				OrderNumber:        order.OrderNumber,
				FromOrganizationID: order.FromOrganizationID,
				ToOrganizationID:   order.ToOrganizationID,
				CreatedBy:          order.CreatedBy,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	}), "order.created")
	return s.load(ctx, order.ID)
}

// insertWithNumber retries order number generation on unique collisions. Each
// attempt runs in a savepoint so a failed insert does not poison tx.
func (s *service) insertWithNumber(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		number, err := s.newNumber(s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number
		lastErr = tx.Transaction(func(inner *gorm.DB) error {
			return s.repo.WithTx(inner).CreateOrder(ctx, order)
		})
		if lastErr == nil {
			return nil
		}
		if !db.IsUniqueViolation(lastErr, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create order")
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_number": number,
			"attempt":      attempt + 1,
		}), "order.number.collision")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique order number")
}

// resolveItems validates quantities, merges duplicate titles and snapshots
// the current price of each active literature.
func (s *service) resolveItems(ctx context.Context, inputs []ItemInput) ([]models.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	quantities := map[uuid.UUID]int{}
	order := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"literature_id": in.LiteratureID.String(), "quantity": in.Quantity})
		}
		if _, seen := quantities[in.LiteratureID]; !seen {
			order = append(order, in.LiteratureID)
		}
		quantities[in.LiteratureID] += in.Quantity
	}

	catalog, err := s.activeLiterature(ctx, order...)
	if err != nil {
		return nil, err
	}
	lines := make([]models.OrderItem, 0, len(order))
	for _, id := range order {
		lines = append(lines, models.OrderItem{
			LiteratureID: id,
			Quantity:     quantities[id],
			UnitPrice:    catalog[id].Price,
		})
	}
	return lines, nil
}

func (s *service) activeLiterature(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]models.Literature, error) {
	rows, err := s.literature.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load literature")
	}
	catalog := make(map[uuid.UUID]models.Literature, len(rows))
	for _, row := range rows {
		catalog[row.ID] = row
	}
	for _, id := range ids {
		row, ok := catalog[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "literature not found").
				WithDetails(map[string]any{"literature_id": id.String()})
		}
		if !row.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "literature is inactive").
				WithDetails(map[string]any{"literature_id": id.String()})
		}
	}
	return catalog, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := actor.RequireMember(order.FromOrganizationID, order.ToOrganizationID); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[OrderDTO], error) {
	var empty pagination.Page[OrderDTO]
	if !actor.Role.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	if !actor.IsAdmin() {
		if filter.OrganizationID != nil && *filter.OrganizationID != actor.OrganizationID {
			return empty, pkgerrors.New(pkgerrors.CodeForbidden, "organization access denied")
		}
		org := actor.OrganizationID
		filter.OrganizationID = &org
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(filter.Page.Cursor); err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, filter.Page.Limit, func(d OrderDTO) pagination.Cursor {
		return pagination.Cursor{At: d.CreatedAt, ID: d.ID}
	}), nil
}

func (s *service) UpdateNotes(ctx context.Context, actor auth.Actor, orderID uuid.UUID, notes *string) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if err := checkLock(order, actor); err != nil {
			return err
		}
		var value any
		if notes != nil {
			value = strings.TrimSpace(*notes)
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"notes": value}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order notes")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return err
	}
	var deleted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if !order.Status.IsDeletable() {
			return notEditable(order)
		}
		if err := checkLock(order, actor); err != nil {
			return err
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		deleted = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:      enums.EventOrderDeleted,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			OrganizationID: &order.FromOrganizationID,
			Actor:          actor.OutboxRef(),
			Data: payloads.OrderDeletedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Status:      order.Status,
				DeletedBy:   actor.UserID,
			},
		})
	})
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     deleted.ID.String(),
		"order_number": deleted.OrderNumber,
		"status":       string(deleted.Status),
	}), "order.deleted")
	return nil
}

// transitionPermission is the permission an actor needs to move an order into status.
func transitionPermission(status enums.OrderStatus) enums.Permission {
	switch status {
	case enums.OrderStatusApproved, enums.OrderStatusRejected:
		return enums.PermOrdersApprove
	case enums.OrderStatusInAssembly, enums.OrderStatusShipped:
		return enums.PermOrdersFulfill
	default:
		return enums.PermOrdersCreate
	}
}

// ChangeStatus moves the order one step through its lifecycle and applies the
// stock and ledger side effects of that step atomically.
func (s *service) ChangeStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(status)})
	}
	if err := actor.Require(transitionPermission(status)); err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		previous enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if err := checkLock(order, actor); err != nil {
			return err
		}
		previous = order.Status
		if !previous.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeInvalidStatusTransition, "invalid status transition").
				WithDetails(map[string]any{"current": string(previous), "requested": string(status)})
		}
		if err := s.applySideEffects(ctx, tx, actor, order, status); err != nil {
			return err
		}
		changedAt := s.now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status, "updated_at": changedAt}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = status
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:      enums.EventOrderStatusChanged,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			OrganizationID: &order.FromOrganizationID,
			Actor:          actor.OutboxRef(),
			OccurredAt:     changedAt,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:            order.ID,
				OrderNumber:        order.OrderNumber,
				FromOrganizationID: order.FromOrganizationID,
				ToOrganizationID:   order.ToOrganizationID,
				PreviousStatus:     previous,
				Status:             status,
				TotalAmount:        order.TotalAmount,
				ChangedBy:          actor.UserID,
				ChangedAt:          changedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveTransition(string(previous), string(status))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"from_status":  string(previous),
		"to_status":    string(status),
	}), "order.transition")
	s.notifyTransition(ctx, actor, order)

	return s.load(ctx, orderID)
}

func (s *service) applySideEffects(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order, next enums.OrderStatus) error {
	switch next {
	case enums.OrderStatusPending:
		if len(order.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}
	case enums.OrderStatusApproved:
		if len(order.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
		}
		for _, item := range order.Items {
			if err := s.inventory.Reserve(ctx, tx, order.ToOrganizationID, item.LiteratureID, item.Quantity); err != nil {
				return err
			}
		}
	case enums.OrderStatusRejected:
		if !order.Status.HoldsReservation() {
			return nil
		}
		for _, item := range order.Items {
			if err := s.inventory.Release(ctx, tx, order.ToOrganizationID, item.LiteratureID, item.Quantity); err != nil {
				return err
			}
		}
	case enums.OrderStatusShipped:
		for _, item := range order.Items {
			entry := transactions.OrderEntry(enums.TransactionTypeOutgoing, order.ID, order.ToOrganizationID, item.LiteratureID, item.Quantity, actor.UserRef())
			if err := s.ledger.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
	case enums.OrderStatusCompleted:
		for _, item := range order.Items {
			if err := s.inventory.Consume(ctx, tx, order.ToOrganizationID, item.LiteratureID, item.Quantity); err != nil {
				return err
			}
			if _, err := s.inventory.Adjust(ctx, tx, order.FromOrganizationID, item.LiteratureID, item.Quantity); err != nil {
				return err
			}
			entry := transactions.OrderEntry(enums.TransactionTypeIncoming, order.ID, order.FromOrganizationID, item.LiteratureID, item.Quantity, actor.UserRef())
			if err := s.ledger.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// transitionRecipients returns the organizations told about order entering its
// current status.
func transitionRecipients(order *models.Order) []uuid.UUID {
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusDelivered:
		return []uuid.UUID{order.ToOrganizationID}
	case enums.OrderStatusCompleted:
		return []uuid.UUID{order.FromOrganizationID, order.ToOrganizationID}
	default:
		return []uuid.UUID{order.FromOrganizationID}
	}
}

func (s *service) notifyTransition(ctx context.Context, actor auth.Actor, order *models.Order) {
	kind, ok := enums.NotificationForStatus(order.Status)
	if !ok {
		return
	}
	orderID := order.ID
	label := strings.ToLower(strings.ReplaceAll(string(order.Status), "_", " "))
	s.notifications.Dispatch(ctx, notifications.Event{
		Type:            kind,
		OrganizationIDs: transitionRecipients(order),
		OrderID:         &orderID,
		Title:           fmt.Sprintf("Order %s %s", order.OrderNumber, label),
		Message:         fmt.Sprintf("Order %s is now %s.", order.OrderNumber, order.Status),
		Actor:           actor.OutboxRef(),
	})
}

func (s *service) Lock(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersLock); err != nil {
		return nil, err
	}
	if actor.IsSystem() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "locks require a user actor")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if order.Locked {
			if order.IsLockedByOther(actor.UserID) {
				return pkgerrors.New(pkgerrors.CodeAlreadyLocked, "order is locked by another user").
					WithDetails(lockDetails(order))
			}
			return nil
		}
		now := s.now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"locked":    true,
			"locked_by": actor.UserID,
			"locked_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "order_id", orderID.String()), "order.locked")
	return s.load(ctx, orderID)
}

func (s *service) Unlock(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersLock); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if !order.Locked {
			return nil
		}
		if order.IsLockedByOther(actor.UserID) && !actor.Role.Can(enums.PermOrdersUnlockAny) {
			return pkgerrors.New(pkgerrors.CodeOrderLocked, "order is locked by another user").
				WithDetails(lockDetails(order))
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"locked":    false,
			"locked_by": nil,
			"locked_at": nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlock order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "order_id", orderID.String()), "order.unlocked")
	return s.load(ctx, orderID)
}

func (s *service) AddItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input ItemInput) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	catalog, err := s.activeLiterature(ctx, input.LiteratureID)
	if err != nil {
		return nil, err
	}
	price := catalog[input.LiteratureID].Price

	return s.editItems(ctx, actor, orderID, func(repo Repository, order *models.Order) error {
		existing, err := repo.FindItemByLiterature(ctx, order.ID, input.LiteratureID)
		switch {
		case err == nil:
			return repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return repo.CreateItem(ctx, &models.OrderItem{
				ID:           uuid.New(),
				OrderID:      order.ID,
				LiteratureID: input.LiteratureID,
				Quantity:     input.Quantity,
				UnitPrice:    price,
			})
		default:
			return err
		}
	})
}

func (s *service) UpdateItem(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID, quantity int) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.editItems(ctx, actor, orderID, func(repo Repository, order *models.Order) error {
		item, err := repo.FindItem(ctx, order.ID, itemID)
		if err != nil {
			return err
		}
		return repo.UpdateItemQuantity(ctx, item.ID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID) (*OrderDTO, error) {
	if err := actor.Require(enums.PermOrdersCreate); err != nil {
		return nil, err
	}
	return s.editItems(ctx, actor, orderID, func(repo Repository, order *models.Order) error {
		item, err := repo.FindItem(ctx, order.ID, itemID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPending {
			items, err := repo.ListItems(ctx, order.ID)
			if err != nil {
				return err
			}
			if len(items) <= 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "a submitted order must keep at least one item").
					WithDetails(map[string]any{"item_id": item.ID.String()})
			}
		}
		return repo.DeleteItem(ctx, item.ID)
	})
}

// editItems runs mutate under the order row lock after the editability and
// lock checks, then recomputes total_amount in the same transaction.
func (s *service) editItems(ctx context.Context, actor auth.Actor, orderID uuid.UUID, mutate func(repo Repository, order *models.Order) error) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockedOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if !order.Status.IsEditable() {
			return notEditable(order)
		}
		if err := checkLock(order, actor); err != nil {
			return err
		}
		if err := mutate(repo, order); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order items")
		}
		items, err := repo.ListItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"total_amount": orderTotal(items)}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, orderID)
}

// lockedOrder loads the order FOR UPDATE and checks the actor belongs to one
// side of it.
func (s *service) lockedOrder(ctx context.Context, repo Repository, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := actor.RequireMember(order.FromOrganizationID, order.ToOrganizationID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return FromModel(order), nil
}

func checkLock(order *models.Order, actor auth.Actor) error {
	if order.IsLockedByOther(actor.UserID) {
		return pkgerrors.New(pkgerrors.CodeOrderLocked, "order is locked by another user").
			WithDetails(lockDetails(order))
	}
	return nil
}

func notEditable(order *models.Order) error {
	return pkgerrors.New(pkgerrors.CodeOrderNotEditable, "order cannot be modified in its current status").
		WithDetails(map[string]any{"status": string(order.Status)})
}

func lockDetails(order *models.Order) map[string]any {
	details := map[string]any{"order_id": order.ID.String()}
	if order.LockedBy != nil {
		details["locked_by"] = order.LockedBy.String()
	}
	return details
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
