package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/models"
)

type authorHandler struct {
	responder Responder
	userRepo  *database.UserRepo
	postRepo  *database.PostRepo
	guard     permissionGuard
}

func newAuthorHandler(userRepo *database.UserRepo, postRepo *database.PostRepo, guard permissionGuard) authorHandler {
	logger := log.With().Str("handlerName", "authorHandler").Logger()

	return authorHandler{
		responder: NewResponder(logger),
		userRepo:  userRepo,
		postRepo:  postRepo,
		guard:     guard,
	}
}

// getAuthor returns an author's public profile
// @Summary Get author
// @Tags Authors
// @Produce json
// @Param username path string true "Author username"
// @Success 200 {object} envelope "Profile with published post count"
// @Failure 404 {object} envelope "Author not found"
// @Router /api/authors/{username} [get]
func (h authorHandler) getAuthor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.userRepo.FindByUsername(r.Context(), chi.URLParam(r, "username"))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "author", err))
			return
		}

		count, err := h.userRepo.CountPublishedPosts(r.Context(), user.ID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("count", "posts", err))
			return
		}

		// E-mail stays private on the public profile.
		user.Email = ""
		h.responder.WriteData(w, http.StatusOK, authorProfile{User: *user, PostCount: count}, "Author retrieved successfully")
	}
}

// getAuthorPosts lists an author's posts. Only published posts are public;
// any other status filter needs posts:read.
func (h authorHandler) getAuthorPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		if _, err := h.userRepo.FindByUsername(r.Context(), username); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "author", err))
			return
		}

		status, err := statusParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if status != string(models.PostStatusPublished) {
			if err := h.guard.allowed(r, models.PermPostsRead); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}

		page, limit, err := pageParams(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.postRepo.List(r.Context(), database.PostQuery{
			Status:    status,
			Author:    username,
			SortBy:    "published_at",
			SortOrder: r.URL.Query().Get("sortOrder"),
			Page:      page,
			Limit:     limit,
		})
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "posts", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       newPostViews(result.Posts),
			Message:    "Posts retrieved successfully",
			Pagination: pageOf(result),
		})
	}
}
