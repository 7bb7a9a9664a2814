package literature

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/literature-backend/pkg/db/models"
	"github.com/angelmondragon/literature-backend/pkg/pagination"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	Category *string
	Active   *bool
	Search   string
	Page     pagination.Params
}

// Repository persists catalog titles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Literature) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Literature, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Literature, error)
	List(ctx context.Context, filter ListFilter) ([]models.Literature, error)
	Save(ctx context.Context, item *models.Literature) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Literature) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Literature, error) {
	var item models.Literature
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Literature, error) {
	var items []models.Literature
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// List returns titles ordered by created_at desc with a buffered limit.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Literature, error) {
	query := r.db.WithContext(ctx).Model(&models.Literature{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	query, err := pagination.Apply(query, "created_at", filter.Page)
	if err != nil {
		return nil, err
	}
	var items []models.Literature
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Save(ctx context.Context, item *models.Literature) error {
	return r.db.WithContext(ctx).Save(item).Error
}
