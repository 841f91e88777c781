package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type CommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db}
}

// CountApproved counts approved comments created in [from, to). A zero
// bound is open.
func (r *CommentRepo) CountApproved(ctx context.Context, from, to time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Comment{}).Where("status = ?", models.CommentStatusApproved)
	if !from.IsZero() {
		tx = tx.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		tx = tx.Where("created_at < ?", to)
	}
	var count int64
	err := tx.Count(&count).Error
	return count, err
}

// ListApproved returns a post's approved comments, oldest first.
func (r *CommentRepo) ListApproved(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.CommentStatusApproved).
		Order("created_at").
		Find(&comments).Error
	return comments, err
}

func (r *CommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *CommentRepo) SetStatus(ctx context.Context, id uuid.UUID, status models.CommentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("Comment")
	}
	return nil
}
