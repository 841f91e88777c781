package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:text;not null"`
	Slug        string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"type:text;not null"`
	Slug string    `json:"slug" gorm:"type:text;not null;uniqueIndex"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Media is an uploaded asset. Only the columns needed to render a
// featured image are modelled here.
type Media struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	URL     string    `json:"url" gorm:"type:text;not null"`
	AltText *string   `json:"alt_text" gorm:"type:text"`
	Caption *string   `json:"caption" gorm:"type:text"`
}

func (Media) TableName() string {
	return "media"
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
