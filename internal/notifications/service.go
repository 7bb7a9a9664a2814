package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Event is one notification fanned out to every listed organization.
type Event struct {
	Type            enums.NotificationType
	OrganizationIDs []uuid.UUID
	OrderID         *uuid.UUID
	LiteratureID    *uuid.UUID
	Title           string
	Message         string
	Actor           *outbox.ActorRef
}

// Dispatcher delivers events after the triggering change has committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Service defines notification list/read operations plus dispatch.
type Service interface {
	Dispatcher
	List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Notification], error)
	MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error)
}

type service struct {
	repo   Repository
	outbox outboxPublisher
	tx     txRunner
	logg   *logger.Logger
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Page       pagination.Params
	UnreadOnly bool
}

// NewService wires notifications dependencies.
func NewService(repo Repository, outbox outboxPublisher, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, outbox: outbox, tx: tx, logg: logg}, nil
}

// Dispatch stores one row per recipient and queues a notification_requested
// event. Failures are logged and never returned.
func (s *service) Dispatch(ctx context.Context, event Event) {
	recipients := uniqueRecipients(event.OrganizationIDs)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"notification_type": string(event.Type),
		"recipients":        len(recipients),
	})
	if !event.Type.IsValid() || len(recipients) == 0 {
		s.logg.Warn(ctx, "notifications.dispatch.skipped")
		return
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, orgID := range recipients {
			row := &models.Notification{
				ID:             uuid.New(),
				OrganizationID: orgID,
				Type:           event.Type,
				Title:          event.Title,
				Message:        event.Message,
				OrderID:        event.OrderID,
				LiteratureID:   event.LiteratureID,
			}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
		}

		aggregateID := recipients[0]
		aggregateType := enums.AggregateNotification
		if event.OrderID != nil {
			aggregateID = *event.OrderID
			aggregateType = enums.AggregateOrder
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Actor:         event.Actor,
			Data: payloads.NotificationRequestedEvent{
				Type:            event.Type,
				OrganizationIDs: recipients,
				OrderID:         event.OrderID,
				LiteratureID:    event.LiteratureID,
				Title:           event.Title,
				Message:         event.Message,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "notifications.dispatch.failed", err)
		return
	}
	s.logg.Debug(ctx, "notifications.dispatched")
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Notification], error) {
	var empty pagination.Page[models.Notification]
	if actor.OrganizationID == uuid.Nil {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if _, err := pagination.ParseCursor(params.Page.Cursor); err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		OrganizationID: actor.OrganizationID,
		Page:           params.Page,
		UnreadOnly:     params.UnreadOnly,
	})
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return pagination.Build(rows, params.Page.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{At: n.CreatedAt, ID: n.ID}
	}), nil
}

func (s *service) MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	if actor.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, actor.OrganizationID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error) {
	if actor.OrganizationID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}

	count, err := s.repo.MarkAllRead(ctx, actor.OrganizationID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func uniqueRecipients(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
