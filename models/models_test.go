package models_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/blog-cms-backend/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "models.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestPostTagsSortedByName(t *testing.T) {
	go1 := models.Tag{ID: uuid.New(), Name: "go", Slug: "go"}
	api := models.Tag{ID: uuid.New(), Name: "api", Slug: "api"}
	zig := models.Tag{ID: uuid.New(), Name: "zig", Slug: "zig"}

	forward := models.Post{PostTags: []models.PostTag{{Tag: api}, {Tag: go1}, {Tag: zig}}}
	reverse := models.Post{PostTags: []models.PostTag{{Tag: zig}, {Tag: go1}, {Tag: api}}}

	assert.Equal(t, []models.Tag{api, go1, zig}, forward.Tags())
	assert.Equal(t, forward.Tags(), reverse.Tags())
}

func TestPostTagsSkipsUnloadedTags(t *testing.T) {
	p := models.Post{PostTags: []models.PostTag{{PostID: uuid.New(), TagID: uuid.New()}}}
	assert.Empty(t, p.Tags())
	assert.NotNil(t, p.Tags())
}

func TestPostStatusValid(t *testing.T) {
	tests := []struct {
		status models.PostStatus
		want   bool
	}{
		{models.PostStatusDraft, true},
		{models.PostStatusPublished, true},
		{models.PostStatusScheduled, true},
		{"archived", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Valid())
		})
	}
}

func TestDefaultRoles(t *testing.T) {
	byName := map[string]models.Role{}
	for _, r := range models.DefaultRoles() {
		byName[r.Name] = r
	}

	require.Len(t, byName, 9)
	for _, p := range models.AllPermissions {
		assert.True(t, byName[models.RoleAdmin].HasPermission(p), p)
	}
	assert.True(t, byName[models.RoleEditor].HasPermission(models.PermPostsEdit))
	assert.False(t, byName[models.RoleContributor].HasPermission(models.PermPostsDelete))
	assert.False(t, byName[models.RolePublic].HasPermission(models.PermRolesRead))
}

func TestSeedRolesKeepsEditedPermissions(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, models.Migrate(db))
	require.NoError(t, models.SeedRoles(db))

	require.NoError(t, db.Model(&models.Role{}).
		Where("name = ?", models.RolePublic).
		Update("permissions", models.Role{Permissions: []string{models.PermPostsView}}.Permissions).Error)

	require.NoError(t, models.SeedRoles(db))

	var count int64
	require.NoError(t, db.Model(&models.Role{}).Count(&count).Error)
	assert.EqualValues(t, 9, count)

	var public models.Role
	require.NoError(t, db.First(&public, "name = ?", models.RolePublic).Error)
	assert.Equal(t, []string{models.PermPostsView}, []string(public.Permissions))
}

func TestColumnMismatchReport(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, models.Migrate(db))

	var out bytes.Buffer
	total, err := models.ColumnMismatchReport(db, &out)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, db.Exec("ALTER TABLE tags ADD COLUMN legacy_color text").Error)

	out.Reset()
	total, err = models.ColumnMismatchReport(db, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Contains(t, out.String(), "  - legacy_color")
	assert.Contains(t, out.String(), "Total mismatched columns across all tables: 1")
}
