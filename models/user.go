package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AuthID       *string   `json:"auth_id" gorm:"type:text;uniqueIndex"`
	Username     string    `json:"username" gorm:"type:text;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"type:text;not null;default:''"`
	Email        string    `json:"email,omitempty" gorm:"type:text"`
	Avatar       *string   `json:"avatar" gorm:"type:text"`
	Bio          *string   `json:"bio,omitempty" gorm:"type:text"`
	PasswordHash string    `json:"-" gorm:"type:text"`
	RoleName     string    `json:"role,omitempty" gorm:"column:role;type:text;not null;default:subscriber;index"`
	CreatedAt    time.Time `json:"created_at,omitzero"`

	Role *Role `json:"-" gorm:"foreignKey:RoleName;references:Name"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Role grants a fixed set of permission strings.
type Role struct {
	Name        string                      `json:"name" gorm:"type:text;primaryKey"`
	Description string                      `json:"description" gorm:"type:text;not null;default:''"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (r Role) HasPermission(permission string) bool {
	return slices.Contains(r.Permissions, permission)
}
