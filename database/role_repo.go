package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type RoleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) *RoleRepo {
	return &RoleRepo{db}
}

// FindAll returns all roles ordered by name
func (r *RoleRepo) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.WithContext(ctx).Order("name").Find(&roles).Error
	return roles, err
}

func (r *RoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).Take(&role, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("Role")
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// HasPermission reports whether roleName grants permission. An unknown
// role grants nothing.
func (r *RoleRepo) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	role, err := r.FindByName(ctx, roleName)
	if errs.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role.HasPermission(permission), nil
}
