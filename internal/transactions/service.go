package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

// InventoryAdjuster applies on-hand corrections inside the caller's tx.
type InventoryAdjuster interface {
	Adjust(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the ledger over the API.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransactionDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[TransactionDTO], error)
	CreateManual(ctx context.Context, actor auth.Actor, input ManualInput) (*TransactionDTO, error)
	Reverse(ctx context.Context, actor auth.Actor, id uuid.UUID, notes *string) (*TransactionDTO, error)
}

type service struct {
	repo      Repository
	ledger    *Ledger
	inventory InventoryAdjuster
	outbox    outboxPublisher
	tx        txRunner
	logg      *logger.Logger
}

func NewService(repo Repository, ledger *Ledger, inventory InventoryAdjuster, outbox outboxPublisher, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, ledger: ledger, inventory: inventory, outbox: outbox, tx: tx, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransactionDTO, error) {
	if err := actor.Require(enums.PermTransactionsView); err != nil {
		return nil, err
	}
	entry, err := loadEntry(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	if err := actor.RequireMember(entry.OrganizationID); err != nil {
		return nil, err
	}
	return FromModel(entry), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[TransactionDTO], error) {
	var empty pagination.Page[TransactionDTO]
	if err := actor.Require(enums.PermTransactionsView); err != nil {
		return empty, err
	}
	if !actor.IsAdmin() {
		if filter.OrganizationID != nil && *filter.OrganizationID != actor.OrganizationID {
			return empty, pkgerrors.New(pkgerrors.CodeForbidden, "organization access denied")
		}
		org := actor.OrganizationID
		filter.OrganizationID = &org
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}
	if _, err := pagination.ParseCursor(filter.Page.Cursor); err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	dtos := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, filter.Page.Limit, func(d TransactionDTO) pagination.Cursor {
		return pagination.Cursor{At: d.OccurredAt, ID: d.ID}
	}), nil
}

// CreateManual records the movement and applies the matching inventory change
// in one transaction.
func (s *service) CreateManual(ctx context.Context, actor auth.Actor, input ManualInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.PermTransactionsManage); err != nil {
		return nil, err
	}
	if err := actor.RequireMember(input.OrganizationID); err != nil {
		return nil, err
	}

	entry := &models.Transaction{
		Type:           input.Type,
		Direction:      input.Direction,
		OrganizationID: input.OrganizationID,
		LiteratureID:   input.LiteratureID,
		Quantity:       input.Quantity,
		CreatedBy:      actor.UserRef(),
		Notes:          input.Notes,
	}
	if input.OccurredAt != nil {
		entry.OccurredAt = input.OccurredAt.UTC()
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.Record(ctx, tx, entry); err != nil {
			return err
		}
		_, err := s.inventory.Adjust(ctx, tx, entry.OrganizationID, entry.LiteratureID, entry.SignedQuantity())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id":  entry.ID.String(),
		"organization_id": entry.OrganizationID.String(),
		"type":            string(entry.Type),
	}), "transaction.recorded")
	return FromModel(entry), nil
}

// Reverse cancels id by appending an opposite ADJUSTMENT and undoing its stock
// effect. Entries are never deleted. A transfer leg cannot be cancelled alone:
// both legs are reversed together, destination first, and the reversal of id
// is returned.
func (s *service) Reverse(ctx context.Context, actor auth.Actor, id uuid.UUID, notes *string) (*TransactionDTO, error) {
	if err := actor.Require(enums.PermTransactionsManage); err != nil {
		return nil, err
	}

	var (
		reversal *models.Transaction
		legs     []models.Transaction
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		original, err := loadEntry(ctx, repo, id, true)
		if err != nil {
			return err
		}
		if original.ReversesID != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "reversal entries cannot be reversed")
		}
		if original.OrderID != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order movements cannot be reversed").
				WithDetails(map[string]any{"order_id": original.OrderID.String()})
		}

		legs = []models.Transaction{*original}
		if original.TransferID != nil {
			if legs, err = transferLegs(ctx, repo, *original.TransferID); err != nil {
				return err
			}
		}
		// the source organization owns a transfer
		owner := original.OrganizationID
		for _, leg := range legs {
			if leg.Direction == enums.TransactionDirectionOut {
				owner = leg.OrganizationID
			}
		}
		if err := actor.RequireMember(owner); err != nil {
			return err
		}

		for i := range legs {
			entry, err := s.reverseEntry(ctx, tx, repo, actor, &legs[i], notes)
			if err != nil {
				return err
			}
			if legs[i].ID == id {
				reversal = entry
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields := map[string]any{
		"transaction_id": id.String(),
		"reversal_id":    reversal.ID.String(),
		"legs":           len(legs),
	}
	if reversal.TransferID != nil {
		fields["transfer_id"] = reversal.TransferID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "transaction.reversed")
	return FromModel(reversal), nil
}

// transferLegs returns both legs of a transfer with the IN leg first so the
// destination gives the stock back before the source is re-credited.
func transferLegs(ctx context.Context, repo Repository, transferID uuid.UUID) ([]models.Transaction, error) {
	legs, err := repo.FindTransferLegsForUpdate(ctx, transferID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer legs")
	}
	if len(legs) != 2 || legs[0].Direction == legs[1].Direction {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "transfer is incomplete").
			WithDetails(map[string]any{"transfer_id": transferID.String(), "legs": len(legs)})
	}
	if legs[0].Direction != enums.TransactionDirectionIn {
		legs[0], legs[1] = legs[1], legs[0]
	}
	return legs, nil
}

func (s *service) reverseEntry(ctx context.Context, tx *gorm.DB, repo Repository, actor auth.Actor, original *models.Transaction, notes *string) (*models.Transaction, error) {
	if existing, err := repo.FindReversalOf(ctx, original.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction already reversed").
			WithDetails(map[string]any{"reversal_id": existing.ID.String()})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check reversal")
	}

	reverses := original.ID
	entry := &models.Transaction{
		Type:           enums.TransactionTypeAdjustment,
		Direction:      original.Direction.Opposite(),
		OrganizationID: original.OrganizationID,
		LiteratureID:   original.LiteratureID,
		Quantity:       original.Quantity,
		ReversesID:     &reverses,
		TransferID:     original.TransferID,
		CreatedBy:      actor.UserRef(),
		Notes:          notes,
	}
	if err := s.ledger.Record(ctx, tx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction already reversed")
		}
		return nil, err
	}
	if _, err := s.inventory.Adjust(ctx, tx, entry.OrganizationID, entry.LiteratureID, entry.SignedQuantity()); err != nil {
		return nil, err
	}

	orgID := entry.OrganizationID
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:      enums.EventTransactionReversed,
		AggregateType:  enums.AggregateTransaction,
		AggregateID:    original.ID,
		OrganizationID: &orgID,
		Actor:          actor.OutboxRef(),
		Data: payloads.TransactionReversedEvent{
			TransactionID:  original.ID,
			ReversalID:     entry.ID,
			OrganizationID: entry.OrganizationID,
			LiteratureID:   entry.LiteratureID,
			Quantity:       entry.Quantity,
			Direction:      entry.Direction,
			TransferID:     entry.TransferID,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit transaction reversed")
	}
	return entry, nil
}

func loadEntry(ctx context.Context, repo Repository, id uuid.UUID, forUpdate bool) (*models.Transaction, error) {
	var (
		entry *models.Transaction
		err   error
	)
	if forUpdate {
		entry, err = repo.FindByIDForUpdate(ctx, id)
	} else {
		entry, err = repo.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return entry, nil
}
