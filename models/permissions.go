package models

// Permission strings checked against a role's granted set.
const (
	PermDashboardAccess = "dashboard:access"

	PermPostsCreate   = "posts:create"
	PermPostsEdit     = "posts:edit"
	PermPostsDelete   = "posts:delete"
	PermPostsPublish  = "posts:publish"
	PermPostsRead     = "posts:read"
	PermPostsSchedule = "posts:schedule"
	PermPostsReview   = "posts:review"
	PermPostsView     = "posts:view"

	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermUsersEdit   = "users:edit"
	PermUsersDelete = "users:delete"

	PermRolesRead   = "roles:read"
	PermRolesWrite  = "roles:write"
	PermRolesDelete = "roles:delete"

	PermMediaUpload = "media:upload"
	PermMediaRead   = "media:read"
	PermMediaDelete = "media:delete"
	PermMediaEdit   = "media:edit"

	PermSettingsRead  = "settings:read"
	PermSettingsWrite = "settings:write"

	PermCommentsCreate   = "comments:create"
	PermCommentsModerate = "comments:moderate"
	PermCommentsRead     = "comments:read"
	PermCommentsDelete   = "comments:delete"
	PermCommentsReply    = "comments:reply"

	PermNewslettersRead   = "newsletters:read"
	PermNewslettersWrite  = "newsletters:write"
	PermNewslettersDelete = "newsletters:delete"

	PermAuthRegister = "auth:register"
	PermAuthLogin    = "auth:login"

	PermCategoriesCreate = "categories:create"
	PermCategoriesRead   = "categories:read"

	PermTagsRead   = "tags:read"
	PermTagsCreate = "tags:create"

	PermPagesRead   = "pages:read"
	PermPagesEdit   = "pages:edit"
	PermPagesDelete = "pages:delete"
	PermPagesWrite  = "pages:write"

	PermSEOEdit = "seo:edit"
	PermSEOView = "seo:view"

	PermAnalyticsView   = "analytics:view"
	PermAnalyticsExport = "analytics:export"
)

var AllPermissions = []string{
	PermDashboardAccess,
	PermPostsCreate, PermPostsEdit, PermPostsDelete, PermPostsPublish,
	PermPostsRead, PermPostsSchedule, PermPostsReview, PermPostsView,
	PermUsersRead, PermUsersWrite, PermUsersEdit, PermUsersDelete,
	PermRolesRead, PermRolesWrite, PermRolesDelete,
	PermMediaUpload, PermMediaRead, PermMediaDelete, PermMediaEdit,
	PermSettingsRead, PermSettingsWrite,
	PermCommentsCreate, PermCommentsModerate, PermCommentsRead, PermCommentsDelete, PermCommentsReply,
	PermNewslettersRead, PermNewslettersWrite, PermNewslettersDelete,
	PermAuthRegister, PermAuthLogin,
	PermCategoriesCreate, PermCategoriesRead,
	PermTagsRead, PermTagsCreate,
	PermPagesRead, PermPagesEdit, PermPagesDelete, PermPagesWrite,
	PermSEOEdit, PermSEOView,
	PermAnalyticsView, PermAnalyticsExport,
}

const (
	RoleAdmin             = "admin"
	RoleEditor            = "editor"
	RoleAuthor            = "author"
	RoleContributor       = "contributor"
	RoleModerator         = "moderator"
	RoleSEOManager        = "seo_manager"
	RoleNewsletterManager = "newsletter_manager"
	RoleSubscriber        = "subscriber"
	RolePublic            = "public"
)

// DefaultRoles is the role catalogue seeded on migration.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleAdmin, Description: "Full access", Permissions: AllPermissions},
		{Name: RoleEditor, Description: "Manages all content", Permissions: []string{
			PermDashboardAccess,
			PermPostsCreate, PermPostsEdit, PermPostsDelete, PermPostsPublish,
			PermPostsRead, PermPostsSchedule, PermPostsReview, PermPostsView,
			PermMediaUpload, PermMediaRead, PermMediaDelete, PermMediaEdit,
			PermCommentsModerate, PermCommentsRead, PermCommentsDelete, PermCommentsReply,
			PermCategoriesCreate, PermCategoriesRead, PermTagsRead, PermTagsCreate,
			PermPagesRead, PermPagesEdit, PermPagesWrite,
			PermSEOEdit, PermSEOView, PermAnalyticsView, PermSettingsRead,
		}},
		{Name: RoleAuthor, Description: "Writes and publishes own posts", Permissions: []string{
			PermDashboardAccess,
			PermPostsCreate, PermPostsEdit, PermPostsPublish, PermPostsRead, PermPostsSchedule, PermPostsView,
			PermMediaUpload, PermMediaRead,
			PermCommentsRead, PermCommentsReply,
			PermCategoriesRead, PermTagsRead, PermTagsCreate, PermAnalyticsView,
		}},
		{Name: RoleContributor, Description: "Writes drafts for review", Permissions: []string{
			PermDashboardAccess,
			PermPostsCreate, PermPostsEdit, PermPostsRead, PermPostsView,
			PermMediaUpload, PermMediaRead, PermCategoriesRead, PermTagsRead,
		}},
		{Name: RoleModerator, Description: "Moderates comments", Permissions: []string{
			PermDashboardAccess, PermPostsRead, PermPostsView,
			PermCommentsModerate, PermCommentsRead, PermCommentsDelete, PermCommentsReply,
		}},
		{Name: RoleSEOManager, Description: "Manages search metadata", Permissions: []string{
			PermDashboardAccess, PermPostsRead, PermPostsView, PermPagesRead,
			PermSEOEdit, PermSEOView, PermAnalyticsView, PermAnalyticsExport,
		}},
		{Name: RoleNewsletterManager, Description: "Manages newsletter subscribers", Permissions: []string{
			PermDashboardAccess, PermNewslettersRead, PermNewslettersWrite, PermNewslettersDelete, PermAnalyticsView,
		}},
		{Name: RoleSubscriber, Description: "Registered reader", Permissions: []string{
			PermPostsView, PermCommentsCreate, PermCommentsRead, PermAuthLogin,
		}},
		{Name: RolePublic, Description: "Anonymous visitor", Permissions: []string{
			PermPostsView, PermCommentsRead, PermAuthRegister, PermAuthLogin,
		}},
	}
}
