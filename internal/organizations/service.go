package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/auth"
	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/literature-backend/pkg/errors"
	"github.com/angelmondragon/literature-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes organization management and the ordering rule.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*OrganizationDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrganizationDTO, error)
	List(ctx context.Context, filter ListFilter) ([]OrganizationDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*OrganizationDTO, error)
	Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	Suppliers(ctx context.Context, id uuid.UUID) ([]OrganizationDTO, error)
	CanOrderFrom(ctx context.Context, fromID, toID uuid.UUID) (bool, error)
	Hierarchy(ctx context.Context) (*Hierarchy, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("organization repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*OrganizationDTO, error) {
	if err := actor.Require(enums.PermOrganizationsManage); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid organization type")
	}

	org := &models.Organization{
		ID:         uuid.New(),
		Name:       name,
		Type:       input.Type,
		ParentID:   input.ParentID,
		SupplierID: input.SupplierID,
		IsActive:   true,
	}
	if err := s.requireLink(ctx, s.repo, "parent", input.ParentID); err != nil {
		return nil, err
	}
	if err := s.requireLink(ctx, s.repo, "supplier", input.SupplierID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
	}
	s.logg.Info(s.logg.WithField(ctx, "organization_id", org.ID.String()), "organization.created")
	return FromModel(org), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrganizationDTO, error) {
	org, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(org), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]OrganizationDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations")
	}
	return fromModels(rows), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*OrganizationDTO, error) {
	if err := actor.Require(enums.PermOrganizationsManage); err != nil {
		return nil, err
	}

	var updated *models.Organization
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		org, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
			}
			org.Name = name
		}
		if input.Type != nil {
			if !input.Type.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid organization type")
			}
			org.Type = *input.Type
		}

		switch {
		case input.ClearParent:
			org.ParentID = nil
		case input.ParentID != nil:
			if err := s.requireLink(ctx, repo, "parent", input.ParentID); err != nil {
				return err
			}
			edges, err := repo.Edges(ctx)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hierarchy")
			}
			if NewHierarchy(edges).WouldCreateCycle(org.ID, *input.ParentID) {
				return pkgerrors.New(pkgerrors.CodeValidation, "parent would create a cycle").
					WithDetails(map[string]any{"parent_id": input.ParentID.String()})
			}
			parent := *input.ParentID
			org.ParentID = &parent
		}

		switch {
		case input.ClearSupplier:
			org.SupplierID = nil
		case input.SupplierID != nil:
			if *input.SupplierID == org.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "organization cannot supply itself")
			}
			if err := s.requireLink(ctx, repo, "supplier", input.SupplierID); err != nil {
				return err
			}
			supplier := *input.SupplierID
			org.SupplierID = &supplier
		}

		if err := repo.Save(ctx, org); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update organization")
		}
		updated = org
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.PermOrganizationsManage); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		org, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !org.IsActive {
			return nil
		}
		children, err := repo.CountActiveChildren(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count child organizations")
		}
		if children > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "organization has active children").
				WithDetails(map[string]any{"active_children": children})
		}
		org.IsActive = false
		if err := repo.Save(ctx, org); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate organization")
		}
		s.logg.Info(s.logg.WithField(ctx, "organization_id", id.String()), "organization.deactivated")
		return nil
	})
}

// Suppliers lists the active organizations id may order from.
func (s *service) Suppliers(ctx context.Context, id uuid.UUID) ([]OrganizationDTO, error) {
	org, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	ids := supplierIDs(org)
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suppliers")
	}
	active := rows[:0]
	for _, row := range rows {
		if row.IsActive {
			active = append(active, row)
		}
	}
	return fromModels(active), nil
}

// CanOrderFrom is true when to is the direct parent or the configured supplier
// of from and both are active.
func (s *service) CanOrderFrom(ctx context.Context, fromID, toID uuid.UUID) (bool, error) {
	if fromID == toID {
		return false, nil
	}
	rows, err := s.repo.FindByIDs(ctx, []uuid.UUID{fromID, toID})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organizations")
	}
	var from, to *models.Organization
	for i := range rows {
		switch rows[i].ID {
		case fromID:
			from = &rows[i]
		case toID:
			to = &rows[i]
		}
	}
	if from == nil || to == nil || !from.IsActive || !to.IsActive {
		return false, nil
	}
	for _, id := range supplierIDs(from) {
		if id == toID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) Hierarchy(ctx context.Context) (*Hierarchy, error) {
	edges, err := s.repo.Edges(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hierarchy")
	}
	return NewHierarchy(edges), nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Organization, error) {
	org, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

// requireLink checks that an optional parent or supplier reference points at an
// active organization.
func (s *service) requireLink(ctx context.Context, repo Repository, field string, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	org, err := repo.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" organization not found").
				WithDetails(map[string]any{field + "_id": id.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+field+" organization")
	}
	if !org.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" organization is inactive")
	}
	return nil
}

func supplierIDs(org *models.Organization) []uuid.UUID {
	var ids []uuid.UUID
	if org.ParentID != nil {
		ids = append(ids, *org.ParentID)
	}
	if org.SupplierID != nil && (org.ParentID == nil || *org.SupplierID != *org.ParentID) {
		ids = append(ids, *org.SupplierID)
	}
	return ids
}
