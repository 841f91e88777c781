package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type NewsletterRepo struct {
	db *gorm.DB
}

func NewNewsletterRepo(db *gorm.DB) *NewsletterRepo {
	return &NewsletterRepo{db}
}

func (r *NewsletterRepo) FindByEmail(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *NewsletterRepo) FindByToken(ctx context.Context, token string) (*models.NewsletterSubscriber, error) {
	return r.findOne(ctx, "token = ?", token)
}

func (r *NewsletterRepo) findOne(ctx context.Context, query string, arg any) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	err := r.db.WithContext(ctx).Take(&sub, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("Subscription")
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *NewsletterRepo) Create(ctx context.Context, sub *models.NewsletterSubscriber) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// Save writes every column of an existing subscriber.
func (r *NewsletterRepo) Save(ctx context.Context, sub *models.NewsletterSubscriber) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// List returns subscribers, newest first. An empty status lists all of them.
func (r *NewsletterRepo) List(ctx context.Context, status models.SubscriberStatus, page, limit int) ([]models.NewsletterSubscriber, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.NewsletterSubscriber{})
	if status != "" {
		tx = tx.Where("status = ?", status)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, size := Paginate(page, limit)
	var subs []models.NewsletterSubscriber
	err := tx.Order("created_at DESC").Offset(offset).Limit(size).Find(&subs).Error
	return subs, total, err
}
