package organizations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/enums"
)

// ListFilter narrows organization listings. Nil fields are ignored.
type ListFilter struct {
	Type     *enums.OrganizationType
	ParentID *uuid.UUID
	Active   *bool
}

// Repository persists organizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organization, error)
	List(ctx context.Context, filter ListFilter) ([]models.Organization, error)
	Save(ctx context.Context, org *models.Organization) error
	Edges(ctx context.Context) ([]Edge, error)
	CountActiveChildren(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds organization persistence to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	if len(ids) == 0 {
		return orgs, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Organization, error) {
	query := r.db.WithContext(ctx).Model(&models.Organization{})
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	var orgs []models.Organization
	if err := query.Order("name ASC").Order("id ASC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repository) Save(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

// Edges loads the (id, parent_id) pairs for the whole tree.
func (r *repository) Edges(ctx context.Context) ([]Edge, error) {
	var edges []Edge
	if err := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Select("id", "parent_id").
		Scan(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (r *repository) CountActiveChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("parent_id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count, err
}
