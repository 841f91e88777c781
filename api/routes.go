package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/rpupo63/blog-cms-backend/models"
)

// rateLimits groups the per-IP limiters of the public write endpoints.
type rateLimits struct {
	auth      *ipRateLimiter
	subscribe *ipRateLimiter
	comment   *ipRateLimiter
}

// setupAPIRoutes mounts every /api endpoint. Permission checks wrap the
// individual handlers so a denied request never reaches them.
func setupAPIRoutes(r chi.Router, h *routeHandlers, guard permissionGuard, limits rateLimits) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", limits.auth.wrap(guard.require(models.PermAuthLogin, h.authHandler.login())))
			r.Post("/register", limits.auth.wrap(guard.require(models.PermAuthRegister, h.authHandler.register())))
			r.Post("/logout", h.authHandler.logout())
			r.Get("/me", guard.requireSession(h.authHandler.me()))
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.postHandler.listPosts())
			r.Post("/", guard.require(models.PermPostsCreate, h.postHandler.createPost()))

			r.Route("/{slugOrId}", func(r chi.Router) {
				r.Get("/", h.postHandler.getPost())
				r.Put("/", guard.require(models.PermPostsEdit, h.postHandler.updatePost()))
				r.Delete("/", guard.require(models.PermPostsDelete, h.postHandler.deletePost()))

				r.Get("/comments", h.commentHandler.listComments())
				r.Post("/comments", limits.comment.wrap(h.commentHandler.createComment()))
			})
		})

		r.Patch("/comments/{commentId}", guard.require(models.PermCommentsModerate, h.commentHandler.moderateComment()))

		r.Get("/roles", guard.require(models.PermRolesRead, h.roleHandler.getRoles()))

		r.Get("/settings", h.settingsHandler.getSettings())
		r.Post("/settings", guard.require(models.PermSettingsWrite, h.settingsHandler.saveSettings()))

		r.Route("/analytics/overview", func(r chi.Router) {
			r.Get("/comments", h.analyticsHandler.commentsOverview())
			r.Get("/posts", guard.require(models.PermAnalyticsView, h.analyticsHandler.postsOverview()))
		})

		r.Route("/newsletters", func(r chi.Router) {
			r.Post("/", limits.subscribe.wrap(h.newsletterHandler.subscribe()))
			r.Get("/", guard.require(models.PermNewslettersRead, h.newsletterHandler.listSubscribers()))
			r.Get("/confirmation", h.newsletterHandler.confirm())
			r.Get("/unsubscribe", h.newsletterHandler.unsubscribe())
		})

		r.Get("/categories", h.taxonomyHandler.listCategories())
		r.Post("/categories", guard.require(models.PermCategoriesCreate, h.taxonomyHandler.createCategory()))
		r.Get("/tags", h.taxonomyHandler.listTags())
		r.Post("/tags", guard.require(models.PermTagsCreate, h.taxonomyHandler.createTag()))

		r.Get("/authors/{username}", h.authorHandler.getAuthor())
		r.Get("/authors/{username}/posts", h.authorHandler.getAuthorPosts())

		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", guard.requireSession(guard.require(models.PermPostsView, h.bookmarkHandler.listBookmarks())))
			r.Post("/{postId}", guard.requireSession(guard.require(models.PermPostsView, h.bookmarkHandler.addBookmark())))
			r.Delete("/{postId}", guard.requireSession(guard.require(models.PermPostsView, h.bookmarkHandler.removeBookmark())))
		})
	})
}
