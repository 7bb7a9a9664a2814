package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
	"github.com/angelmondragon/literature-backend/pkg/metrics"
	"github.com/angelmondragon/literature-backend/pkg/outbox"
	"github.com/angelmondragon/literature-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

var tracer = otel.Tracer("github.com/angelmondragon/literature-backend/internal/inventory")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type entryRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry *models.Transaction) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Ledger is the stock primitive set used by orders and transactions. Every
// method joins tx when given, otherwise it opens its own transaction.
type Ledger interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID) (*models.InventoryRecord, error)
	Reserve(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	ReleaseStrict(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Consume(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) error
	Adjust(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

// Service adds the actor-checked API surface on top of Ledger.
type Service interface {
	Ledger
	Get(ctx context.Context, actor auth.Actor, orgID, literatureID uuid.UUID) (*RecordDTO, error)
	List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[RecordDTO], error)
	ReserveStock(ctx context.Context, actor auth.Actor, input StockInput) (*RecordDTO, error)
	ReleaseStock(ctx context.Context, actor auth.Actor, input StockInput) (*RecordDTO, error)
	AdjustStock(ctx context.Context, actor auth.Actor, input AdjustInput) (*RecordDTO, error)
	Transfer(ctx context.Context, actor auth.Actor, input TransferInput) (*TransferResult, error)
}

type service struct {
	repo    Repository
	ledger  entryRecorder
	outbox  outboxPublisher
	tx      txRunner
	metrics *metrics.DomainMetrics
	logg    *logger.Logger
}

func NewService(repo Repository, ledger entryRecorder, outbox outboxPublisher, tx txRunner, domainMetrics *metrics.DomainMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("transaction ledger required")
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
	return &service{repo: repo, ledger: ledger, outbox: outbox, tx: tx, metrics: domainMetrics, logg: logg}, nil
}

func (s *service) GetOrCreate(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID) (*models.InventoryRecord, error) {
	var record *models.InventoryRecord
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		var err error
		record, err = s.ensure(ctx, s.repo.WithTx(tx), orgID, literatureID)
		return err
	})
	return record, err
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) (err error) {
	ctx, span := startSpan(ctx, "inventory.Reserve", orgID, literatureID, qty)
	defer func() { s.finish(span, "reserve", err) }()

	if err := requirePositive(qty); err != nil {
		return err
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.Reserve(ctx, orgID, literatureID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
		}
		if n > 0 {
			return nil
		}
		available := 0
		if record, err := repo.Find(ctx, orgID, literatureID); err == nil {
			available = record.Available()
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(stockDetails(orgID, literatureID, qty, "available", available))
	})
}

// Release lowers the reservation by qty. An over-release clamps the
// reservation to zero and is logged instead of failing.
func (s *service) Release(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) (err error) {
	ctx, span := startSpan(ctx, "inventory.Release", orgID, literatureID, qty)
	defer func() { s.finish(span, "release", err) }()

	if err := requirePositive(qty); err != nil {
		return err
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.Release(ctx, orgID, literatureID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
		}
		if n > 0 {
			return nil
		}
		reserved, err := reservedFor(ctx, repo, orgID, literatureID)
		if err != nil {
			return err
		}
		if _, err := repo.ClearReservation(ctx, orgID, literatureID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clamp reservation")
		}
		span.SetAttributes(attribute.Bool("inventory.clamped", true))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"organization_id": orgID.String(),
			"literature_id":   literatureID.String(),
			"requested":       qty,
			"reserved":        reserved,
		}), "inventory.release.clamped")
		return nil
	})
}

// reservedFor reads the current reservation after a conditional release
// matched nothing. A missing record is NOT_FOUND; there is nothing to release.
func reservedFor(ctx context.Context, repo Repository, orgID, literatureID uuid.UUID) (int, error) {
	record, err := repo.Find(ctx, orgID, literatureID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found").
			WithDetails(map[string]any{"organization_id": orgID.String(), "literature_id": literatureID.String()})
	case err != nil:
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return record.ReservedQuantity, nil
}

func (s *service) ReleaseStrict(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) (err error) {
	ctx, span := startSpan(ctx, "inventory.ReleaseStrict", orgID, literatureID, qty)
	defer func() { s.finish(span, "release_strict", err) }()

	if err := requirePositive(qty); err != nil {
		return err
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.Release(ctx, orgID, literatureID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
		}
		if n > 0 {
			return nil
		}
		reserved, err := reservedFor(ctx, repo, orgID, literatureID)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInvalidRelease, "release exceeds reserved quantity").
			WithDetails(stockDetails(orgID, literatureID, qty, "reserved", reserved))
	})
}

func (s *service) Consume(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, qty int) (err error) {
	ctx, span := startSpan(ctx, "inventory.Consume", orgID, literatureID, qty)
	defer func() { s.finish(span, "consume", err) }()

	if err := requirePositive(qty); err != nil {
		return err
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		n, err := repo.Consume(ctx, orgID, literatureID, qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume inventory")
		}
		if n > 0 {
			return nil
		}
		reserved := 0
		if record, err := repo.Find(ctx, orgID, literatureID); err == nil {
			reserved = record.ReservedQuantity
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientReservedStock, "insufficient reserved stock").
			WithDetails(stockDetails(orgID, literatureID, qty, "reserved", reserved))
	})
}

// Adjust applies a signed on-hand correction, creating the record on first use.
func (s *service) Adjust(ctx context.Context, tx *gorm.DB, orgID, literatureID uuid.UUID, delta int) (record *models.InventoryRecord, err error) {
	ctx, span := startSpan(ctx, "inventory.Adjust", orgID, literatureID, delta)
	defer func() { s.finish(span, "adjust", err) }()

	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	err = s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ensure(ctx, repo, orgID, literatureID); err != nil {
			return err
		}
		n, err := repo.Adjust(ctx, orgID, literatureID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust inventory")
		}
		current, err := repo.Find(ctx, orgID, literatureID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
		}
		if n == 0 {
			return pkgerrors.New(pkgerrors.CodeNegativeStock, "adjustment would make stock negative").
				WithDetails(map[string]any{
					"organization_id":   orgID.String(),
					"literature_id":     literatureID.String(),
					"delta":             delta,
					"quantity":          current.Quantity,
					"reserved_quantity": current.ReservedQuantity,
				})
		}
		record = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orgID, literatureID uuid.UUID) (*RecordDTO, error) {
	if err := actor.Require(enums.PermInventoryView); err != nil {
		return nil, err
	}
	if err := actor.RequireMember(orgID); err != nil {
		return nil, err
	}
	record, err := s.repo.Find(ctx, orgID, literatureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return FromModel(record), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (pagination.Page[RecordDTO], error) {
	var empty pagination.Page[RecordDTO]
	if err := actor.Require(enums.PermInventoryView); err != nil {
		return empty, err
	}
	if !actor.IsAdmin() {
		if filter.OrganizationID != nil && *filter.OrganizationID != actor.OrganizationID {
			return empty, pkgerrors.New(pkgerrors.CodeForbidden, "organization access denied")
		}
		org := actor.OrganizationID
		filter.OrganizationID = &org
	}
	if _, err := pagination.ParseCursor(filter.Page.Cursor); err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	dtos := make([]RecordDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, filter.Page.Limit, func(d RecordDTO) pagination.Cursor {
		return pagination.Cursor{At: d.UpdatedAt, ID: d.ID}
	}), nil
}

func (s *service) ReserveStock(ctx context.Context, actor auth.Actor, input StockInput) (*RecordDTO, error) {
	return s.manage(ctx, actor, input.OrganizationID, input.LiteratureID, func(tx *gorm.DB) error {
		return s.Reserve(ctx, tx, input.OrganizationID, input.LiteratureID, input.Quantity)
	})
}

func (s *service) ReleaseStock(ctx context.Context, actor auth.Actor, input StockInput) (*RecordDTO, error) {
	return s.manage(ctx, actor, input.OrganizationID, input.LiteratureID, func(tx *gorm.DB) error {
		return s.Release(ctx, tx, input.OrganizationID, input.LiteratureID, input.Quantity)
	})
}

// AdjustStock applies the correction and records a matching ADJUSTMENT entry.
func (s *service) AdjustStock(ctx context.Context, actor auth.Actor, input AdjustInput) (*RecordDTO, error) {
	return s.manage(ctx, actor, input.OrganizationID, input.LiteratureID, func(tx *gorm.DB) error {
		if _, err := s.Adjust(ctx, tx, input.OrganizationID, input.LiteratureID, input.Delta); err != nil {
			return err
		}
		direction := enums.TransactionDirectionIn
		qty := input.Delta
		if qty < 0 {
			direction = enums.TransactionDirectionOut
			qty = -qty
		}
		return s.ledger.Record(ctx, tx, &models.Transaction{
			Type:           enums.TransactionTypeAdjustment,
			Direction:      direction,
			OrganizationID: input.OrganizationID,
			LiteratureID:   input.LiteratureID,
			Quantity:       qty,
			CreatedBy:      actor.UserRef(),
			Notes:          input.Notes,
		})
	})
}

// Transfer moves stock between organizations in one transaction and records an
// OUTGOING entry at the source and an INCOMING entry at the destination.
func (s *service) Transfer(ctx context.Context, actor auth.Actor, input TransferInput) (result *TransferResult, err error) {
	ctx, span := startSpan(ctx, "inventory.Transfer", input.FromOrganizationID, input.LiteratureID, input.Quantity)
	span.SetAttributes(attribute.String("inventory.to_organization_id", input.ToOrganizationID.String()))
	defer func() { s.finish(span, "transfer", err) }()

	if err := actor.Require(enums.PermInventoryManage); err != nil {
		return nil, err
	}
	if err := actor.RequireMember(input.FromOrganizationID); err != nil {
		return nil, err
	}
	if input.FromOrganizationID == input.ToOrganizationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source and destination must differ")
	}
	if err := requirePositive(input.Quantity); err != nil {
		return nil, err
	}

	transferID := uuid.New()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		from, err := s.Adjust(ctx, tx, input.FromOrganizationID, input.LiteratureID, -input.Quantity)
		if err != nil {
			return err
		}
		to, err := s.Adjust(ctx, tx, input.ToOrganizationID, input.LiteratureID, input.Quantity)
		if err != nil {
			return err
		}
		outgoing := &models.Transaction{
			Type:           enums.TransactionTypeOutgoing,
			OrganizationID: input.FromOrganizationID,
			LiteratureID:   input.LiteratureID,
			Quantity:       input.Quantity,
			TransferID:     &transferID,
			CreatedBy:      actor.UserRef(),
			Notes:          input.Notes,
		}
		if err := s.ledger.Record(ctx, tx, outgoing); err != nil {
			return err
		}
		incoming := &models.Transaction{
			Type:           enums.TransactionTypeIncoming,
			OrganizationID: input.ToOrganizationID,
			LiteratureID:   input.LiteratureID,
			Quantity:       input.Quantity,
			TransferID:     &transferID,
			CreatedBy:      actor.UserRef(),
			Notes:          input.Notes,
		}
		if err := s.ledger.Record(ctx, tx, incoming); err != nil {
			return err
		}

		fromOrg := input.FromOrganizationID
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:      enums.EventInventoryTransferred,
			AggregateType:  enums.AggregateInventory,
			AggregateID:    from.ID,
			OrganizationID: &fromOrg,
			Actor:          actor.OutboxRef(),
			Data: payloads.InventoryTransferredEvent{
				FromOrganizationID: input.FromOrganizationID,
				ToOrganizationID:   input.ToOrganizationID,
				LiteratureID:       input.LiteratureID,
				Quantity:           input.Quantity,
				OutgoingID:         outgoing.ID,
				IncomingID:         incoming.ID,
				TransferID:         transferID,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit inventory transferred")
		}

		result = &TransferResult{
			From:       *FromModel(from),
			To:         *FromModel(to),
			OutgoingID: outgoing.ID,
			IncomingID: incoming.ID,
			TransferID: transferID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from_organization_id": input.FromOrganizationID.String(),
		"to_organization_id":   input.ToOrganizationID.String(),
		"literature_id":        input.LiteratureID.String(),
		"quantity":             input.Quantity,
		"transfer_id":          transferID.String(),
	}), "inventory.transferred")
	return result, nil
}

func (s *service) manage(ctx context.Context, actor auth.Actor, orgID, literatureID uuid.UUID, fn func(tx *gorm.DB) error) (*RecordDTO, error) {
	if err := actor.Require(enums.PermInventoryManage); err != nil {
		return nil, err
	}
	if err := actor.RequireMember(orgID); err != nil {
		return nil, err
	}
	var record *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		record, err = s.repo.WithTx(tx).Find(ctx, orgID, literatureID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(record), nil
}

func (s *service) ensure(ctx context.Context, repo Repository, orgID, literatureID uuid.UUID) (*models.InventoryRecord, error) {
	if err := repo.Ensure(ctx, orgID, literatureID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure inventory record")
	}
	record, err := repo.Find(ctx, orgID, literatureID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
	}
	return record, nil
}

func (s *service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.tx.WithTx(ctx, fn)
}

func (s *service) finish(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if typed := pkgerrors.As(err); typed != nil && isStockConflict(typed.Code()) {
			s.metrics.IncInventoryConflict(operation, string(typed.Code()))
		}
	}
	span.End()
}

func startSpan(ctx context.Context, name string, orgID, literatureID uuid.UUID, qty int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("inventory.organization_id", orgID.String()),
		attribute.String("inventory.literature_id", literatureID.String()),
		attribute.Int("inventory.quantity", qty),
	))
}

func isStockConflict(code pkgerrors.Code) bool {
	switch code {
	case pkgerrors.CodeInsufficientStock,
		pkgerrors.CodeInsufficientReservedStock,
		pkgerrors.CodeNegativeStock,
		pkgerrors.CodeInvalidRelease:
		return true
	}
	return false
}

func requirePositive(qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	return nil
}

func stockDetails(orgID, literatureID uuid.UUID, requested int, key string, value int) map[string]any {
	return map[string]any{
		"organization_id": orgID.String(),
		"literature_id":   literatureID.String(),
		"requested":       requested,
		key:               value,
	}
}
