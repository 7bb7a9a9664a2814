package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/internal/notifications"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

const (
	defaultPendingMaxAge = 12 * time.Hour
	pendingReminderBatch = 500
)

type pendingOrderLister interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type PendingOrderReminderJobParams struct {
	Logger        *logger.Logger
	Orders        pendingOrderLister
	Notifications notifications.Dispatcher
	MaxAge        time.Duration
}

// NewPendingOrderReminderJob nudges suppliers about orders that have sat in
// PENDING longer than MaxAge.
func NewPendingOrderReminderJob(params PendingOrderReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingMaxAge
	}
	return &pendingOrderReminderJob{
		logg:   params.Logger,
		orders: params.Orders,
		notify: params.Notifications,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type pendingOrderReminderJob struct {
	logg   *logger.Logger
	orders pendingOrderLister
	notify notifications.Dispatcher
	maxAge time.Duration
	now    func() time.Time
}

func (j *pendingOrderReminderJob) Name() string { return "pending-order-reminder" }

func (j *pendingOrderReminderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	orders, err := j.orders.ListPendingBefore(ctx, cutoff, pendingReminderBatch)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}

	for _, order := range orders {
		orderID := order.ID
		waiting := j.now().UTC().Sub(order.UpdatedAt).Round(time.Hour)
		j.notify.Dispatch(ctx, notifications.Event{
			Type:            enums.NotificationPendingOrderReminder,
			OrganizationIDs: []uuid.UUID{order.ToOrganizationID},
			OrderID:         &orderID,
			Title:           fmt.Sprintf("Order %s awaiting approval", order.OrderNumber),
			Message:         fmt.Sprintf("Order %s has been pending for %s.", order.OrderNumber, waiting),
		})
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"reminded": len(orders),
	}), "cron.pending_reminder.complete")
	return nil
}
