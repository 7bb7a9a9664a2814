package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/internal/orders"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

type stubOrdersService struct {
	orders.Service
	createFn       func(ctx context.Context, actor auth.Actor, input orders.CreateInput) (*orders.OrderDTO, error)
	listFn         func(ctx context.Context, actor auth.Actor, filter orders.ListFilter) (pagination.Page[orders.OrderDTO], error)
	changeStatusFn func(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error)
	updateItemFn   func(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID, qty int) (*orders.OrderDTO, error)
	lockFn         func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*orders.OrderDTO, error)
}

func (s *stubOrdersService) Create(ctx context.Context, actor auth.Actor, input orders.CreateInput) (*orders.OrderDTO, error) {
	return s.createFn(ctx, actor, input)
}

func (s *stubOrdersService) List(ctx context.Context, actor auth.Actor, filter orders.ListFilter) (pagination.Page[orders.OrderDTO], error) {
	return s.listFn(ctx, actor, filter)
}

func (s *stubOrdersService) ChangeStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error) {
	return s.changeStatusFn(ctx, actor, id, status)
}

func (s *stubOrdersService) UpdateItem(ctx context.Context, actor auth.Actor, orderID, itemID uuid.UUID, qty int) (*orders.OrderDTO, error) {
	return s.updateItemFn(ctx, actor, orderID, itemID, qty)
}

func (s *stubOrdersService) Lock(ctx context.Context, actor auth.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
	return s.lockFn(ctx, actor, id)
}

func TestCreateOrderMapsItems(t *testing.T) {
	actor := testActor(enums.RoleOperator)
	supplier := uuid.New()
	title := uuid.New()
	svc := &stubOrdersService{
		createFn: func(ctx context.Context, a auth.Actor, input orders.CreateInput) (*orders.OrderDTO, error) {
			if a.UserID != actor.UserID {
				t.Fatalf("unexpected actor %s", a.UserID)
			}
			if input.ToOrganizationID != supplier {
				t.Fatalf("unexpected supplier %s", input.ToOrganizationID)
			}
			if len(input.Items) != 1 || input.Items[0].LiteratureID != title || input.Items[0].Quantity != 3 {
				t.Fatalf("unexpected items %+v", input.Items)
			}
			if input.Notes == nil || *input.Notes != "rush" {
				t.Fatalf("expected trimmed notes, got %v", input.Notes)
			}
			return &orders.OrderDTO{ID: uuid.New(), OrderNumber: "ORD-20260101-ABC123", Status: enums.OrderStatusDraft}, nil
		},
	}

	body := map[string]any{
		"to_organization_id": supplier,
		"notes":              "  rush  ",
		"items":              []map[string]any{{"literature_id": title, "quantity": 3}},
	}
	rec := httptest.NewRecorder()
	CreateOrder(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/orders", body, &actor, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	got := decodeData[orders.OrderDTO](t, rec)
	if got.Status != enums.OrderStatusDraft {
		t.Fatalf("unexpected status %s", got.Status)
	}
}

func TestCreateOrderRejectsNonPositiveQuantity(t *testing.T) {
	actor := testActor(enums.RoleOperator)
	svc := &stubOrdersService{}
	body := map[string]any{
		"to_organization_id": uuid.New(),
		"items":              []map[string]any{{"literature_id": uuid.New(), "quantity": 0}},
	}
	rec := httptest.NewRecorder()
	CreateOrder(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/orders", body, &actor, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeError(t, rec).Code; code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCreateOrderRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateOrder(&stubOrdersService{}, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/orders", "{}", nil, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChangeOrderStatus(t *testing.T) {
	actor := testActor(enums.RoleRegionalManager)
	orderID := uuid.New()

	cases := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   pkgerrors.Code
	}{
		{name: "approve", body: `{"status":"approved"}`, wantStatus: http.StatusOK},
		{name: "unknown status", body: `{"status":"LOST"}`, wantStatus: http.StatusBadRequest, wantCode: pkgerrors.CodeValidation},
		{name: "missing status", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: pkgerrors.CodeValidation},
		{
			name:       "illegal transition",
			body:       `{"status":"SHIPPED"}`,
			svcErr:     pkgerrors.New(pkgerrors.CodeInvalidStatusTransition, "cannot move from PENDING to SHIPPED"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   pkgerrors.CodeInvalidStatusTransition,
		},
		{
			name:       "locked",
			body:       `{"status":"APPROVED"}`,
			svcErr:     pkgerrors.New(pkgerrors.CodeOrderLocked, "order is locked"),
			wantStatus: http.StatusLocked,
			wantCode:   pkgerrors.CodeOrderLocked,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrdersService{
				changeStatusFn: func(ctx context.Context, a auth.Actor, id uuid.UUID, status enums.OrderStatus) (*orders.OrderDTO, error) {
					if id != orderID {
						t.Fatalf("unexpected order %s", id)
					}
					if tc.svcErr != nil {
						return nil, tc.svcErr
					}
					return &orders.OrderDTO{ID: id, Status: status}, nil
				},
			}
			req := newRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", tc.body, &actor, map[string]string{"orderId": orderID.String()})
			rec := httptest.NewRecorder()
			ChangeOrderStatus(svc, logger.Nop()).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if tc.wantCode != "" {
				if code := decodeError(t, rec).Code; code != string(tc.wantCode) {
					t.Fatalf("expected code %s, got %s", tc.wantCode, code)
				}
				return
			}
			if got := decodeData[orders.OrderDTO](t, rec); got.Status != enums.OrderStatusApproved {
				t.Fatalf("unexpected status %s", got.Status)
			}
		})
	}
}

func TestListOrdersParsesFilters(t *testing.T) {
	actor := testActor(enums.RoleAdmin)
	orgID := uuid.New()
	svc := &stubOrdersService{
		listFn: func(ctx context.Context, a auth.Actor, filter orders.ListFilter) (pagination.Page[orders.OrderDTO], error) {
			if filter.Status == nil || *filter.Status != enums.OrderStatusPending {
				t.Fatalf("unexpected status filter %v", filter.Status)
			}
			if filter.OrganizationID == nil || *filter.OrganizationID != orgID {
				t.Fatalf("unexpected org filter %v", filter.OrganizationID)
			}
			if filter.Page.Limit != 10 {
				t.Fatalf("unexpected limit %d", filter.Page.Limit)
			}
			return pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
		},
	}

	rec := httptest.NewRecorder()
	target := "/api/v1/orders?status=pending&limit=10&organization_id=" + orgID.String()
	ListOrders(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodGet, target, nil, &actor, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateOrderItemValidatesPathAndBody(t *testing.T) {
	actor := testActor(enums.RoleOperator)
	orderID := uuid.New()
	itemID := uuid.New()
	called := false
	svc := &stubOrdersService{
		updateItemFn: func(ctx context.Context, a auth.Actor, oid, iid uuid.UUID, qty int) (*orders.OrderDTO, error) {
			called = true
			if oid != orderID || iid != itemID || qty != 7 {
				t.Fatalf("unexpected args %s %s %d", oid, iid, qty)
			}
			return &orders.OrderDTO{ID: oid}, nil
		},
	}
	handler := UpdateOrderItem(svc, logger.Nop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(t, http.MethodPatch, "/", `{"quantity":7}`, &actor, map[string]string{"orderId": orderID.String(), "itemId": "nope"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad item id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(t, http.MethodPatch, "/", `{"quantity":7}`, &actor, map[string]string{"orderId": orderID.String(), "itemId": itemID.String()}))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 and service call, got %d called=%v", rec.Code, called)
	}
}

func TestLockOrderConflict(t *testing.T) {
	actor := testActor(enums.RoleOperator)
	orderID := uuid.New()
	svc := &stubOrdersService{
		lockFn: func(ctx context.Context, a auth.Actor, id uuid.UUID) (*orders.OrderDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyLocked, "order already locked")
		},
	}
	rec := httptest.NewRecorder()
	LockOrder(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/", nil, &actor, map[string]string{"orderId": orderID.String()}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestOrdersServiceUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	GetOrder(nil, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
