package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

// StatusAll disables the status filter of a post listing.
const StatusAll = "all"

// PostQuery filters and pages a post listing. An empty Status lists
// published posts only.
type PostQuery struct {
	Status    string
	Category  string // slug or id
	Author    string // username
	Search    string
	SortBy    string // created_at, published_at, recent, popular
	SortOrder string // asc or desc
	Page      int
	Limit     int
}

type PostPage struct {
	Posts []models.Post
	Total int64
	Page  int
	Limit int
}

type PostRepo struct {
	db *gorm.DB
}

func NewPostRepo(db *gorm.DB) *PostRepo {
	return &PostRepo{db}
}

func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "auth_id", "username", "name", "avatar")
		}).
		Preload("Category").
		Preload("FeaturedImage").
		Preload("PostTags.Tag")
}

// whereSlugOrID matches a row by slug, or by primary key when key parses
// as a UUID.
func whereSlugOrID(db *gorm.DB, key string) *gorm.DB {
	if id, err := uuid.Parse(key); err == nil {
		return db.Where("slug = ? OR id = ?", key, id)
	}
	return db.Where("slug = ?", key)
}

// FindBySlugOrID loads a post and its relations.
func (r *PostRepo) FindBySlugOrID(ctx context.Context, key string) (*models.Post, error) {
	var post models.Post
	err := whereSlugOrID(withPostRelations(r.db.WithContext(ctx)), key).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("Post")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Exists resolves key to a post without loading relations.
func (r *PostRepo) Exists(ctx context.Context, key string) (*models.Post, error) {
	var post models.Post
	err := whereSlugOrID(r.db.WithContext(ctx).Select("id", "slug", "status", "published_at"), key).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("Post")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdateFields applies a partial update keyed by column name. A nil value
// clears the column.
func (r *PostRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Post{ID: id}).Updates(fields).Error
}

// ReplaceTags swaps the post's tag set for tagIDs.
func (r *PostRepo) ReplaceTags(ctx context.Context, postID uuid.UUID, tagIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		return createPostTags(tx, postID, tagIDs)
	})
	return txError("replace post tags", err)
}

func createPostTags(tx *gorm.DB, postID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.PostTag, 0, len(tagIDs))
	seen := make(map[uuid.UUID]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		rows = append(rows, models.PostTag{PostID: postID, TagID: tagID})
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

// Create inserts a post and links the given tags in one transaction. A
// taken slug is reported as errs.ErrAlreadyExists.
func (r *PostRepo) Create(ctx context.Context, post *models.Post, tagIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return duplicateAs("Post", err)
		}
		return createPostTags(tx, post.ID, tagIDs)
	})
	return txError("create post", err)
}

func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", id).Error
	})
	return txError("delete post", err)
}

// List returns one page of posts with relations plus the unpaged total.
func (r *PostRepo) List(ctx context.Context, q PostQuery) (PostPage, error) {
	tx := r.db.WithContext(ctx).Model(&models.Post{})

	switch q.Status {
	case "":
		tx = tx.Where("status = ?", models.PostStatusPublished)
	case StatusAll:
	default:
		tx = tx.Where("status = ?", q.Status)
	}

	if q.Category != "" {
		sub := whereSlugOrID(r.db.Model(&models.Category{}).Select("id"), q.Category)
		tx = tx.Where("category_id IN (?)", sub)
	}
	if q.Author != "" {
		sub := r.db.Model(&models.User{}).Select("id").Where("username = ?", q.Author)
		tx = tx.Where("author_id IN (?)", sub)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		tx = tx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return PostPage{}, err
	}

	offset, limit := Paginate(q.Page, q.Limit)
	var posts []models.Post
	err := withPostRelations(tx).
		Order(postOrder(q.SortBy, q.SortOrder)).
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return PostPage{}, err
	}

	return PostPage{Posts: posts, Total: total, Page: offset/limit + 1, Limit: limit}, nil
}

func postOrder(sortBy, sortOrder string) clause.OrderByColumn {
	desc := !strings.EqualFold(sortOrder, "asc")
	column := "created_at"
	switch sortBy {
	case "published_at":
		column = "published_at"
	case "popular":
		column, desc = "views", true
	case "recent":
		desc = true
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}
}

// NextAvailableSlug returns base, or base-N for the smallest N >= 2 that is
// not taken.
func (r *PostRepo) NextAvailableSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for n := 2; n < 1000; n++ {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", errs.NewConflictError("no free slug for " + base)
}

// PublishDue moves scheduled posts whose time has come to published.
func (r *PostRepo) PublishDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", models.PostStatusScheduled, now).
		Updates(map[string]any{
			"status":       models.PostStatusPublished,
			"published_at": gorm.Expr("scheduled_at"),
		})
	return res.RowsAffected, res.Error
}

// CountByStatus returns the number of posts per status.
func (r *PostRepo) CountByStatus(ctx context.Context) (map[models.PostStatus]int64, error) {
	var rows []struct {
		Status models.PostStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[models.PostStatus]int64{
		models.PostStatusDraft:     0,
		models.PostStatusPublished: 0,
		models.PostStatusScheduled: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// IncrementViews bumps the view counter without touching updated_at.
func (r *PostRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}
