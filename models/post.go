package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusScheduled PostStatus = "scheduled"
)

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusScheduled:
		return true
	}
	return false
}

// Post is an article. Content holds the editor's HTML output.
type Post struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Slug            string     `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Title           string     `json:"title" gorm:"type:text;not null"`
	Content         string     `json:"content" gorm:"type:text;not null;default:''"`
	Excerpt         *string    `json:"excerpt" gorm:"type:text"`
	Status          PostStatus `json:"status" gorm:"type:text;not null;default:draft;index"`
	Views           int        `json:"views" gorm:"not null;default:0"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`
	PublishedAt     *time.Time `json:"published_at" gorm:"index"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	AuthorID        uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	CategoryID      *uuid.UUID `json:"category_id" gorm:"type:uuid;index"`
	FeaturedImageID *uuid.UUID `json:"featured_image_id" gorm:"type:uuid"`

	Author        *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	Category      *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	FeaturedImage *Media    `json:"featured_image,omitempty" gorm:"foreignKey:FeaturedImageID"`
	PostTags      []PostTag `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Tags flattens the join rows into tag records ordered by name, so the
// result does not depend on the order the relation was loaded in.
func (p Post) Tags() []Tag {
	tags := make([]Tag, 0, len(p.PostTags))
	for _, pt := range p.PostTags {
		if pt.Tag.ID == uuid.Nil {
			continue
		}
		tags = append(tags, pt.Tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Name != tags[j].Name {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].ID.String() < tags[j].ID.String()
	})
	return tags
}

// PostTag joins posts and tags.
type PostTag struct {
	PostID uuid.UUID `json:"post_id" gorm:"type:uuid;primaryKey"`
	TagID  uuid.UUID `json:"tag_id" gorm:"type:uuid;primaryKey;index"`
	Tag    Tag       `json:"tag" gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}
