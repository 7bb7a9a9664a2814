package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	inventorySnapshotSQL = `
SELECT
  ir.organization_id,
  ir.literature_id,
  l.title,
  l.category,
  ir.quantity,
  ir.reserved_quantity,
  ir.quantity - ir.reserved_quantity AS available,
  ir.updated_at
FROM inventory_records ir
JOIN literature l ON l.id = ir.literature_id
WHERE ir.organization_id = ?
ORDER BY l.title ASC, ir.literature_id ASC
`

	movementSummarySQL = `
SELECT
  t.literature_id,
  l.title,
  t.type,
  SUM(CASE WHEN t.direction = 'IN' THEN t.quantity ELSE 0 END) AS quantity_in,
  SUM(CASE WHEN t.direction = 'OUT' THEN t.quantity ELSE 0 END) AS quantity_out,
  COUNT(*) AS entries
FROM transactions t
JOIN literature l ON l.id = t.literature_id
WHERE t.organization_id = ?
  AND t.occurred_at >= ?
  AND t.occurred_at < ?
GROUP BY t.literature_id, l.title, t.type
ORDER BY l.title ASC, t.type ASC
`
)

type snapshotRow struct {
	OrganizationID   uuid.UUID
	LiteratureID     uuid.UUID
	Title            string
	Category         string
	Quantity         int
	ReservedQuantity int
	Available        int
	UpdatedAt        time.Time
}

type movementRow struct {
	LiteratureID uuid.UUID
	Title        string
	Type         string
	QuantityIn   int
	QuantityOut  int
	Entries      int
}

// Repository runs the read-only report queries.
type Repository interface {
	InventorySnapshot(ctx context.Context, orgID uuid.UUID) ([]snapshotRow, error)
	MovementSummary(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]movementRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) InventorySnapshot(ctx context.Context, orgID uuid.UUID) ([]snapshotRow, error) {
	var rows []snapshotRow
	if err := r.db.WithContext(ctx).Raw(inventorySnapshotSQL, orgID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MovementSummary(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]movementRow, error) {
	var rows []movementRow
	if err := r.db.WithContext(ctx).Raw(movementSummarySQL, orgID, from.UTC(), to.UTC()).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
