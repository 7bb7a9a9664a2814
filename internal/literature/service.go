package literature

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
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

// Service manages the literature catalog.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*LiteratureDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*LiteratureDTO, error)
	List(ctx context.Context, filter ListFilter) (pagination.Page[LiteratureDTO], error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*LiteratureDTO, error)
	Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("literature repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*LiteratureDTO, error) {
	if err := actor.Require(enums.PermLiteratureManage); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	category := strings.TrimSpace(input.Category)
	if title == "" || category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and category are required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}

	item := &models.Literature{
		ID:          uuid.New(),
		Title:       title,
		Description: input.Description,
		Category:    category,
		Price:       input.Price.Round(2),
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create literature")
	}
	return FromModel(item), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LiteratureDTO, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(item), nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (pagination.Page[LiteratureDTO], error) {
	if _, err := pagination.ParseCursor(filter.Page.Cursor); err != nil {
		return pagination.Page[LiteratureDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return pagination.Page[LiteratureDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list literature")
	}
	dtos := make([]LiteratureDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return pagination.Build(dtos, filter.Page.Limit, func(d LiteratureDTO) pagination.Cursor {
		return pagination.Cursor{At: d.CreatedAt, ID: d.ID}
	}), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*LiteratureDTO, error) {
	if err := actor.Require(enums.PermLiteratureManage); err != nil {
		return nil, err
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
		}
		item.Title = title
	}
	if input.Description != nil {
		desc := *input.Description
		item.Description = &desc
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
		}
		item.Category = category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		item.Price = input.Price.Round(2)
	}
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update literature")
	}
	return FromModel(item), nil
}

func (s *service) Deactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.PermLiteratureManage); err != nil {
		return err
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !item.IsActive {
		return nil
	}
	item.IsActive = false
	if err := s.repo.Save(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate literature")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Literature, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "literature not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load literature")
	}
	return item, nil
}
