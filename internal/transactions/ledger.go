package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger appends validated entries. The inventory and order services call it
// from inside their own transactions.
type Ledger struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

func NewLedger(repo Repository, tx txRunner) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Ledger{repo: repo, tx: tx, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Record validates entry, fills id, direction and occurred_at when absent and
// persists it with tx, or in a new transaction when tx is nil.
func (l *Ledger) Record(ctx context.Context, tx *gorm.DB, entry *models.Transaction) error {
	if err := l.normalize(entry); err != nil {
		return err
	}
	persist := func(tx *gorm.DB) error {
		if err := l.repo.WithTx(tx).Create(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
		}
		return nil
	}
	if tx != nil {
		return persist(tx)
	}
	return l.tx.WithTx(ctx, persist)
}

func (l *Ledger) normalize(entry *models.Transaction) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction entry required")
	}
	if entry.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": entry.Quantity})
	}
	if !entry.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").
			WithDetails(map[string]any{"type": entry.Type})
	}
	if entry.OrganizationID == uuid.Nil || entry.LiteratureID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization and literature are required")
	}

	implied, fixed := entry.Type.DefaultDirection()
	switch {
	case entry.Direction == "" && fixed:
		entry.Direction = implied
	case entry.Direction == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustments require a direction")
	case !entry.Direction.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction direction")
	case fixed && entry.Direction != implied:
		return pkgerrors.New(pkgerrors.CodeValidation, "direction does not match transaction type").
			WithDetails(map[string]any{"type": entry.Type, "direction": entry.Direction})
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = l.now()
	}
	return nil
}

// OrderEntry builds an order-linked entry of the given type.
func OrderEntry(typ enums.TransactionType, orderID, orgID, literatureID uuid.UUID, qty int, actor *uuid.UUID) *models.Transaction {
	order := orderID
	return &models.Transaction{
		Type:           typ,
		OrganizationID: orgID,
		LiteratureID:   literatureID,
		Quantity:       qty,
		OrderID:        &order,
		CreatedBy:      actor,
	}
}
