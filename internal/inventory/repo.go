package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

// ListFilter narrows record listings. LowStock keeps records whose available
// quantity is at or below the value.
type ListFilter struct {
	OrganizationID *uuid.UUID
	LiteratureID   *uuid.UUID
	LowStock       *int
	Page           pagination.Params
}

// Repository runs the conditional statements behind every ledger operation.
// Each mutation reports the affected row count; zero means the guard failed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, orgID, literatureID uuid.UUID) error
	Find(ctx context.Context, orgID, literatureID uuid.UUID) (*models.InventoryRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryRecord, error)
	Reserve(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error)
	Release(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error)
	ClearReservation(ctx context.Context, orgID, literatureID uuid.UUID) (int64, error)
	Consume(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error)
	Adjust(ctx context.Context, orgID, literatureID uuid.UUID, delta int) (int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

// Ensure inserts a zero record for the pair unless one exists.
func (r *repository) Ensure(ctx context.Context, orgID, literatureID uuid.UUID) error {
	record := models.InventoryRecord{
		ID:             uuid.New(),
		OrganizationID: orgID,
		LiteratureID:   literatureID,
		UpdatedAt:      r.now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "literature_id"}},
			DoNothing: true,
		}).
		Create(&record).Error
}

func (r *repository) Find(ctx context.Context, orgID, literatureID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND literature_id = ?", orgID, literatureID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.InventoryRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryRecord{})
	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}
	if filter.LiteratureID != nil {
		query = query.Where("literature_id = ?", *filter.LiteratureID)
	}
	if filter.LowStock != nil {
		query = query.Where("quantity - reserved_quantity <= ?", *filter.LowStock)
	}
	query, err := pagination.Apply(query, "updated_at", filter.Page)
	if err != nil {
		return nil, err
	}
	var records []models.InventoryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) Reserve(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error) {
	return r.update(ctx, orgID, literatureID,
		"quantity - reserved_quantity >= ?", []any{qty},
		map[string]any{"reserved_quantity": gorm.Expr("reserved_quantity + ?", qty)})
}

func (r *repository) Release(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error) {
	return r.update(ctx, orgID, literatureID,
		"reserved_quantity >= ?", []any{qty},
		map[string]any{"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty)})
}

// ClearReservation zeroes the reservation of an existing record.
func (r *repository) ClearReservation(ctx context.Context, orgID, literatureID uuid.UUID) (int64, error) {
	return r.update(ctx, orgID, literatureID, "", nil,
		map[string]any{"reserved_quantity": 0})
}

func (r *repository) Consume(ctx context.Context, orgID, literatureID uuid.UUID, qty int) (int64, error) {
	return r.update(ctx, orgID, literatureID,
		"reserved_quantity >= ? AND quantity >= ?", []any{qty, qty},
		map[string]any{
			"quantity":          gorm.Expr("quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
		})
}

func (r *repository) Adjust(ctx context.Context, orgID, literatureID uuid.UUID, delta int) (int64, error) {
	return r.update(ctx, orgID, literatureID,
		"quantity + ? >= reserved_quantity AND quantity + ? >= 0", []any{delta, delta},
		map[string]any{"quantity": gorm.Expr("quantity + ?", delta)})
}

func (r *repository) update(ctx context.Context, orgID, literatureID uuid.UUID, guard string, args []any, set map[string]any) (int64, error) {
	set["updated_at"] = r.now()
	query := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("organization_id = ? AND literature_id = ?", orgID, literatureID)
	if guard != "" {
		query = query.Where(guard, args...)
	}
	res := query.Updates(set)
	return res.RowsAffected, res.Error
}
