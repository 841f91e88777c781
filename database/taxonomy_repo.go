package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-cms-backend/models"
)

type CategoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) *CategoryRepo {
	return &CategoryRepo{db}
}

// List returns one page of categories ordered by name and the total count.
func (r *CategoryRepo) List(ctx context.Context, page, limit int) ([]models.Category, int64, error) {
	var (
		categories []models.Category
		total      int64
	)
	tx := r.db.WithContext(ctx).Model(&models.Category{})
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, size := Paginate(page, limit)
	err := r.db.WithContext(ctx).Order("name").Offset(offset).Limit(size).Find(&categories).Error
	return categories, total, err
}

// Create reports a taken slug as errs.ErrAlreadyExists.
func (r *CategoryRepo) Create(ctx context.Context, category *models.Category) error {
	return duplicateAs("Category", r.db.WithContext(ctx).Create(category).Error)
}

type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) *TagRepo {
	return &TagRepo{db}
}

// List returns one page of tags ordered by name and the total count.
func (r *TagRepo) List(ctx context.Context, page, limit int) ([]models.Tag, int64, error) {
	var (
		tags  []models.Tag
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&models.Tag{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, size := Paginate(page, limit)
	err := r.db.WithContext(ctx).Order("name").Offset(offset).Limit(size).Find(&tags).Error
	return tags, total, err
}

func (r *TagRepo) Create(ctx context.Context, tag *models.Tag) error {
	return duplicateAs("Tag", r.db.WithContext(ctx).Create(tag).Error)
}

// FindByIDs returns the tags that exist among ids.
func (r *TagRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error
	return tags, err
}
