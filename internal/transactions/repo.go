package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/db"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

// ListFilter narrows ledger listings. Nil fields are ignored.
type ListFilter struct {
	OrganizationID *uuid.UUID
	LiteratureID   *uuid.UUID
	OrderID        *uuid.UUID
	TransferID     *uuid.UUID
	Type           *enums.TransactionType
	From           *time.Time
	To             *time.Time
	Page           pagination.Params
}

// Repository persists ledger entries. There is no update or delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindReversalOf(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindTransferLegsForUpdate(ctx context.Context, transferID uuid.UUID) ([]models.Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var entry models.Transaction
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindReversalOf(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.WithContext(ctx).Where("reverses_id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindTransferLegsForUpdate locks both entries written by one transfer.
func (r *repository) FindTransferLegsForUpdate(ctx context.Context, transferID uuid.UUID) ([]models.Transaction, error) {
	var legs []models.Transaction
	err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("transfer_id = ? AND reverses_id IS NULL", transferID).
		Order("id ASC").
		Find(&legs).Error
	if err != nil {
		return nil, err
	}
	return legs, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.LiteratureID != nil {
		query = query.Where("literature_id = ?", *filter.LiteratureID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.TransferID != nil {
		query = query.Where("transfer_id = ?", *filter.TransferID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("occurred_at < ?", filter.To.UTC())
	}
	query, err := pagination.Apply(query, "occurred_at", filter.Page)
	if err != nil {
		return nil, err
	}
	var entries []models.Transaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
