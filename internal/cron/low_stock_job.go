package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/internal/inventory"
	"github.com/angelmondragon/literature-backend/internal/notifications"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

const defaultLowStockThreshold = 5

type inventoryLister interface {
	List(ctx context.Context, filter inventory.ListFilter) ([]models.InventoryRecord, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type LowStockJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Inventory     inventoryLister
	Outbox        outboxEmitter
	Notifications notifications.Dispatcher
	Threshold     int
}

// NewLowStockJob scans inventory for records whose available quantity is at or
// below the threshold and alerts the owning organization.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &lowStockJob{
		logg:      params.Logger,
		db:        params.DB,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		notify:    params.Notifications,
		threshold: threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	db        txRunner
	inventory inventoryLister
	outbox    outboxEmitter
	notify    notifications.Dispatcher
	threshold int
}

func (j *lowStockJob) Name() string { return "low-stock-check" }

func (j *lowStockJob) Run(ctx context.Context) error {
	records, err := j.collect(ctx)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}

	var errs error
	alerted := 0
	for _, record := range records {
		if err := j.alert(ctx, record); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %s: %w", record.ID, err))
			continue
		}
		alerted++
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold": j.threshold,
		"matched":   len(records),
		"alerted":   alerted,
	}), "cron.low_stock.complete")
	return errs
}

func (j *lowStockJob) collect(ctx context.Context) ([]models.InventoryRecord, error) {
	threshold := j.threshold
	var (
		all    []models.InventoryRecord
		cursor string
	)
	for {
		rows, err := j.inventory.List(ctx, inventory.ListFilter{
			LowStock: &threshold,
			Page:     pagination.Params{Limit: pagination.MaxLimit, Cursor: cursor},
		})
		if err != nil {
			return nil, err
		}
		page := pagination.Build(rows, pagination.MaxLimit, func(r models.InventoryRecord) pagination.Cursor {
			return pagination.Cursor{At: r.UpdatedAt, ID: r.ID}
		})
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (j *lowStockJob) alert(ctx context.Context, record models.InventoryRecord) error {
	orgID := record.OrganizationID
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:      enums.EventLowStockDetected,
			AggregateType:  enums.AggregateInventory,
			AggregateID:    record.ID,
			OrganizationID: &orgID,
			Data: payloads.LowStockDetectedEvent{
				OrganizationID: record.OrganizationID,
				LiteratureID:   record.LiteratureID,
				Quantity:       record.Quantity,
				Reserved:       record.ReservedQuantity,
				Available:      record.Available(),
				Threshold:      j.threshold,
			},
		})
	})
	if err != nil {
		return err
	}

	literatureID := record.LiteratureID
	j.notify.Dispatch(ctx, notifications.Event{
		Type:            enums.NotificationLowStock,
		OrganizationIDs: []uuid.UUID{record.OrganizationID},
		LiteratureID:    &literatureID,
		Title:           "Low stock",
		Message:         fmt.Sprintf("Only %d copies available (threshold %d).", record.Available(), j.threshold),
	})
	return nil
}
