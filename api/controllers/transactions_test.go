package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/internal/transactions"
	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

type stubTransactionsService struct {
	transactions.Service
	listFn    func(ctx context.Context, actor auth.Actor, filter transactions.ListFilter) (pagination.Page[transactions.TransactionDTO], error)
	createFn  func(ctx context.Context, actor auth.Actor, input transactions.ManualInput) (*transactions.TransactionDTO, error)
	reverseFn func(ctx context.Context, actor auth.Actor, id uuid.UUID, notes *string) (*transactions.TransactionDTO, error)
}

func (s *stubTransactionsService) List(ctx context.Context, actor auth.Actor, filter transactions.ListFilter) (pagination.Page[transactions.TransactionDTO], error) {
	return s.listFn(ctx, actor, filter)
}

func (s *stubTransactionsService) CreateManual(ctx context.Context, actor auth.Actor, input transactions.ManualInput) (*transactions.TransactionDTO, error) {
	return s.createFn(ctx, actor, input)
}

func (s *stubTransactionsService) Reverse(ctx context.Context, actor auth.Actor, id uuid.UUID, notes *string) (*transactions.TransactionDTO, error) {
	return s.reverseFn(ctx, actor, id, notes)
}

func TestListTransactionsRejectsInvertedWindow(t *testing.T) {
	actor := testActor(enums.RoleAdmin)
	rec := httptest.NewRecorder()
	target := "/api/v1/transactions?from=2026-03-01&to=2026-02-01"
	ListTransactions(&stubTransactionsService{}, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodGet, target, nil, &actor, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	actor := testActor(enums.RoleAdmin)
	orderID := uuid.New()
	svc := &stubTransactionsService{
		listFn: func(ctx context.Context, a auth.Actor, filter transactions.ListFilter) (pagination.Page[transactions.TransactionDTO], error) {
			if filter.OrderID == nil || *filter.OrderID != orderID {
				t.Fatalf("unexpected order filter %v", filter.OrderID)
			}
			if filter.Type == nil || *filter.Type != enums.TransactionTypeOutgoing {
				t.Fatalf("unexpected type filter %v", filter.Type)
			}
			if filter.From == nil || filter.To != nil {
				t.Fatalf("unexpected window %v %v", filter.From, filter.To)
			}
			return pagination.Page[transactions.TransactionDTO]{}, nil
		},
	}
	rec := httptest.NewRecorder()
	target := "/api/v1/transactions?type=outgoing&from=2026-01-01T00:00:00Z&order_id=" + orderID.String()
	ListTransactions(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodGet, target, nil, &actor, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestCreateTransactionParsesEnums(t *testing.T) {
	actor := testActor(enums.RoleAdmin)
	svc := &stubTransactionsService{
		createFn: func(ctx context.Context, a auth.Actor, input transactions.ManualInput) (*transactions.TransactionDTO, error) {
			if input.Type != enums.TransactionTypeIncoming || input.Direction != enums.TransactionDirectionIn {
				t.Fatalf("unexpected enums %s %s", input.Type, input.Direction)
			}
			return &transactions.TransactionDTO{ID: uuid.New()}, nil
		},
	}
	body := map[string]any{
		"type":            "incoming",
		"direction":       "in",
		"organization_id": uuid.New(),
		"literature_id":   uuid.New(),
		"quantity":        12,
	}
	rec := httptest.NewRecorder()
	CreateTransaction(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/transactions", body, &actor, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	body["direction"] = "sideways"
	rec = httptest.NewRecorder()
	CreateTransaction(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/transactions", body, &actor, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReverseTransactionWithoutBody(t *testing.T) {
	actor := testActor(enums.RoleAdmin)
	txID := uuid.New()
	svc := &stubTransactionsService{
		reverseFn: func(ctx context.Context, a auth.Actor, id uuid.UUID, notes *string) (*transactions.TransactionDTO, error) {
			if id != txID || notes != nil {
				t.Fatalf("unexpected reverse args %s %v", id, notes)
			}
			return &transactions.TransactionDTO{ID: uuid.New()}, nil
		},
	}
	rec := httptest.NewRecorder()
	ReverseTransaction(svc, logger.Nop()).ServeHTTP(rec, newRequest(t, http.MethodPost, "/", nil, &actor, map[string]string{"transactionId": txID.String()}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
}
