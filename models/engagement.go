package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentStatus string

const (
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusPending  CommentStatus = "pending"
)

type Comment struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	PostID      uuid.UUID     `json:"post_id" gorm:"type:uuid;not null;index"`
	AuthorName  string        `json:"author_name" gorm:"type:text;not null"`
	AuthorEmail string        `json:"-" gorm:"type:text"`
	Content     string        `json:"content" gorm:"type:text;not null"`
	Status      CommentStatus `json:"status" gorm:"type:text;not null;default:pending;index:idx_comments_status_created"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index:idx_comments_status_created"`

	Post *Post `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Bookmark is keyed by (user, post).
type Bookmark struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Post *Post `json:"post,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

func (Bookmark) TableName() string {
	return "user_bookmarks"
}

// SiteSetting is one named entry of the site configuration mapping.
type SiteSetting struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     string    `gorm:"type:text;not null;default:''"`
	Enabled   bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time
}

// SettingValue is the wire form of a SiteSetting.
type SettingValue struct {
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

type SubscriberStatus string

const (
	SubscriberPending      SubscriberStatus = "pending"
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
)

type NewsletterSubscriber struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	Email          string           `json:"email" gorm:"type:text;not null;uniqueIndex"`
	Name           *string          `json:"name" gorm:"type:text"`
	Status         SubscriberStatus `json:"status" gorm:"type:text;not null;default:pending;index"`
	Token          string           `json:"-" gorm:"type:text;index"`
	TokenExpiresAt *time.Time       `json:"-"`
	ConfirmedAt    *time.Time       `json:"confirmed_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (n *NewsletterSubscriber) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
