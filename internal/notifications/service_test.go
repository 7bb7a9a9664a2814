package notifications

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/db/dbtest"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	paginationpkg "github.com/angelmondragon/literature-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, notification *models.Notification) error
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	markReadFn    func(ctx context.Context, orgID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error)
	deleteReadFn  func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, notification)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, orgID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, orgID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, orgID, now)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.deleteReadFn != nil {
		return f.deleteReadFn(ctx, cutoff)
	}
	return 0, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

var member = auth.Actor{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleOperator}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo, &fakeOutbox{}, passthroughTx{}, logger.Nop())
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, &fakeOutbox{}, passthroughTx{}, logger.Nop()); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(&fakeRepository{}, nil, passthroughTx{}, logger.Nop()); err == nil {
		t.Fatal("expected error without outbox")
	}
}

func TestService_ListNotifications(t *testing.T) {
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}
	second := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
			if params.OrganizationID != member.OrganizationID {
				t.Fatalf("expected actor organization, got %s", params.OrganizationID)
			}
			return []models.Notification{first, second}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), member, ListParams{Page: paginationpkg.Params{Limit: 1}})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Items))
	}
	if result.NextCursor == "" {
		t.Fatal("expected cursor for next page")
	}
	decoded, err := paginationpkg.ParseCursor(result.NextCursor)
	if err != nil {
		t.Fatalf("invalid cursor %q: %v", result.NextCursor, err)
	}
	if decoded.ID != first.ID {
		t.Fatalf("expected cursor id %s got %s", first.ID, decoded.ID)
	}
}

func TestService_ListNotificationsInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), member, ListParams{Page: paginationpkg.Params{Cursor: "bad"}})
	if err == nil {
		t.Fatal("expected error for invalid cursor")
	}
	errCode := pkgerrors.As(err).Code()
	if errCode != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", errCode)
	}
}

func TestService_MarkRead(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, orgID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), member, uuid.New()); err != nil {
		t.Fatalf("unexpected mark read error: %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, orgID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	svc := newServiceWithRepo(repo)
	if err := svc.MarkRead(context.Background(), member, uuid.New()); err == nil {
		t.Fatal("expected not found error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
			return 3, nil
		},
	}
	svc := newServiceWithRepo(repo)
	count, err := svc.MarkAllRead(context.Background(), member)
	if err != nil {
		t.Fatalf("unexpected mark all read error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated rows, got %d", count)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(repo)
	if _, err := svc.MarkAllRead(context.Background(), member); err == nil {
		t.Fatal("expected error")
	}
}

func TestDispatchSwallowsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Level: zerolog.DebugLevel})
	repo := &fakeRepository{
		createFn: func(context.Context, *models.Notification) error { return errors.New("db down") },
	}
	svc, err := NewService(repo, &fakeOutbox{}, passthroughTx{}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.Dispatch(context.Background(), Event{
		Type:            enums.NotificationOrderApproved,
		OrganizationIDs: []uuid.UUID{uuid.New()},
		Title:           "Order approved",
	})
	if !strings.Contains(buf.String(), "notifications.dispatch.failed") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}

func TestDispatchPersistsRowsAndEvent(t *testing.T) {
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), nil), client, logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	orderID := uuid.New()
	from, to := uuid.New(), uuid.New()
	svc.Dispatch(context.Background(), Event{
		Type:            enums.NotificationOrderCompleted,
		OrganizationIDs: []uuid.UUID{from, to, from},
		OrderID:         &orderID,
		Title:           "Order completed",
		Message:         "ORD-20260105-ABC123 completed",
	})

	var rows []models.Notification
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per distinct recipient, got %d", len(rows))
	}

	var events []models.OutboxEvent
	if err := conn.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventNotificationRequested || events[0].AggregateID != orderID {
		t.Fatalf("unexpected outbox rows %+v", events)
	}

	page, err := svc.List(context.Background(), auth.Actor{UserID: uuid.New(), OrganizationID: to, Role: enums.RoleViewer}, ListParams{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one unread notification, got %d", len(page.Items))
	}
	if err := svc.MarkRead(context.Background(), auth.Actor{OrganizationID: to}, page.Items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.MarkRead(context.Background(), auth.Actor{OrganizationID: from}, page.Items[0].ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("other organization must not see the row, got %v", err)
	}
}
