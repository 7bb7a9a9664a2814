package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/api/responses"
	"github.com/angelmondragon/literature-backend/api/validators"
	"github.com/angelmondragon/literature-backend/internal/transactions"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type manualTransactionRequest struct {
	Type           string     `json:"type" validate:"required"`
	Direction      string     `json:"direction" validate:"required"`
	OrganizationID uuid.UUID  `json:"organization_id" validate:"required"`
	LiteratureID   uuid.UUID  `json:"literature_id" validate:"required"`
	Quantity       int        `json:"quantity" validate:"gt=0"`
	Notes          *string    `json:"notes" validate:"omitempty,max=2000"`
	OccurredAt     *time.Time `json:"occurred_at"`
}

type reverseTransactionRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

// ListTransactions filters the ledger by organization, literature, order, type
// and an occurred_at window.
func ListTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "transactions")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := transactions.ListFilter{Page: page}
		if filter.OrganizationID, err = validators.ParseQueryUUID(r, "organization_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.LiteratureID, err = validators.ParseQueryUUID(r, "literature_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.TransferID, err = validators.ParseQueryUUID(r, "transfer_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			txType, err := enums.ParseTransactionType(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("type", err))
				return
			}
			filter.Type = &txType
		}
		if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "to must not precede from"))
			return
		}

		result, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "transactions")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tx, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

// CreateTransaction records a manual ledger entry and applies it to inventory.
func CreateTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "transactions")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var req manualTransactionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txType, err := enums.ParseTransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("type", err))
			return
		}
		direction, err := enums.ParseTransactionDirection(strings.ToUpper(strings.TrimSpace(req.Direction)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("direction", err))
			return
		}

		tx, err := svc.CreateManual(r.Context(), actor, transactions.ManualInput{
			Type:           txType,
			Direction:      direction,
			OrganizationID: req.OrganizationID,
			LiteratureID:   req.LiteratureID,
			Quantity:       req.Quantity,
			Notes:          validators.SanitizeOptional(req.Notes, maxNotesLen),
			OccurredAt:     req.OccurredAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tx)
	}
}

// ReverseTransaction posts the compensating entry. The body is optional.
func ReverseTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "transactions")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.URLParamUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reverseTransactionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		reversal, err := svc.Reverse(r.Context(), actor, id, validators.SanitizeOptional(req.Notes, maxNotesLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reversal)
	}
}
