package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
)

const maxMovementWindow = 366 * 24 * time.Hour

type SnapshotLine struct {
	LiteratureID     uuid.UUID `json:"literature_id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	Available        int       `json:"available"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type InventorySnapshot struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Lines          []SnapshotLine `json:"lines"`
	TotalQuantity  int            `json:"total_quantity"`
	TotalReserved  int            `json:"total_reserved"`
}

// MovementLine is the per literature and type rollup. Net is IN minus OUT.
type MovementLine struct {
	LiteratureID uuid.UUID             `json:"literature_id"`
	Title        string                `json:"title"`
	Type         enums.TransactionType `json:"type"`
	QuantityIn   int                   `json:"quantity_in"`
	QuantityOut  int                   `json:"quantity_out"`
	Net          int                   `json:"net"`
	Entries      int                   `json:"entries"`
}

type MovementSummary struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Lines          []MovementLine `json:"lines"`
}

type Service interface {
	InventorySnapshot(ctx context.Context, actor auth.Actor, orgID uuid.UUID) (*InventorySnapshot, error)
	MovementSummary(ctx context.Context, actor auth.Actor, orgID uuid.UUID, from, to time.Time) (*MovementSummary, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) authorize(actor auth.Actor, orgID uuid.UUID) error {
	if err := actor.Require(enums.PermReportsView); err != nil {
		return err
	}
	if orgID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization is required")
	}
	return actor.RequireMember(orgID)
}

func (s *service) InventorySnapshot(ctx context.Context, actor auth.Actor, orgID uuid.UUID) (*InventorySnapshot, error) {
	if err := s.authorize(actor, orgID); err != nil {
		return nil, err
	}
	rows, err := s.repo.InventorySnapshot(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory snapshot")
	}
	out := &InventorySnapshot{
		OrganizationID: orgID,
		GeneratedAt:    s.now(),
		Lines:          make([]SnapshotLine, 0, len(rows)),
	}
	for _, row := range rows {
		out.Lines = append(out.Lines, SnapshotLine{
			LiteratureID:     row.LiteratureID,
			Title:            row.Title,
			Category:         row.Category,
			Quantity:         row.Quantity,
			ReservedQuantity: row.ReservedQuantity,
			Available:        row.Available,
			UpdatedAt:        row.UpdatedAt,
		})
		out.TotalQuantity += row.Quantity
		out.TotalReserved += row.ReservedQuantity
	}
	return out, nil
}

// MovementSummary covers [from, to). A zero to means now and a zero from
// means thirty days before to.
func (s *service) MovementSummary(ctx context.Context, actor auth.Actor, orgID uuid.UUID, from, to time.Time) (*MovementSummary, error) {
	if err := s.authorize(actor, orgID); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	if to.Sub(from) > maxMovementWindow {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "range exceeds one year")
	}

	rows, err := s.repo.MovementSummary(ctx, orgID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "movement summary")
	}
	out := &MovementSummary{
		OrganizationID: orgID,
		From:           from.UTC(),
		To:             to.UTC(),
		Lines:          make([]MovementLine, 0, len(rows)),
	}
	for _, row := range rows {
		out.Lines = append(out.Lines, MovementLine{
			LiteratureID: row.LiteratureID,
			Title:        row.Title,
			Type:         enums.TransactionType(row.Type),
			QuantityIn:   row.QuantityIn,
			QuantityOut:  row.QuantityOut,
			Net:          row.QuantityIn - row.QuantityOut,
			Entries:      row.Entries,
		})
	}
	return out, nil
}
