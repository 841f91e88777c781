package api

import (
	"github.com/benbjohnson/clock"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/services"
)

// handlerDeps carries what the handlers need besides repositories.
type handlerDeps struct {
	guard        permissionGuard
	sessions     sessionManager
	mailer       services.Mailer
	clock        clock.Clock
	baseURL      string
	secureCookie bool
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(db database.Database, deps handlerDeps) *routeHandlers {
	return &routeHandlers{
		authHandler:       newAuthHandler(db.UserRepo(), deps.sessions, deps.secureCookie),
		postHandler:       newPostHandler(db.PostRepo(), db.TagRepo(), deps.guard, deps.clock),
		roleHandler:       newRoleHandler(db.RoleRepo()),
		settingsHandler:   newSettingsHandler(db.SettingRepo()),
		analyticsHandler:  newAnalyticsHandler(db.CommentRepo(), db.PostRepo(), deps.clock),
		newsletterHandler: newNewsletterHandler(db.NewsletterRepo(), deps.mailer, deps.baseURL, deps.clock),
		taxonomyHandler:   newTaxonomyHandler(db.CategoryRepo(), db.TagRepo()),
		authorHandler:     newAuthorHandler(db.UserRepo(), db.PostRepo(), deps.guard),
		bookmarkHandler:   newBookmarkHandler(db.BookmarkRepo(), db.PostRepo()),
		commentHandler:    newCommentHandler(db.CommentRepo(), db.PostRepo()),
	}
}
