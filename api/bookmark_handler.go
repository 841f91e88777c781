package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
)

type bookmarkHandler struct {
	responder    Responder
	bookmarkRepo *database.BookmarkRepo
	postRepo     *database.PostRepo
}

func newBookmarkHandler(bookmarkRepo *database.BookmarkRepo, postRepo *database.PostRepo) bookmarkHandler {
	logger := log.With().Str("handlerName", "bookmarkHandler").Logger()

	return bookmarkHandler{
		responder:    NewResponder(logger),
		bookmarkRepo: bookmarkRepo,
		postRepo:     postRepo,
	}
}

func (h bookmarkHandler) listBookmarks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())

		bookmarks, err := h.bookmarkRepo.List(r.Context(), session.UserID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "bookmarks", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, bookmarks, "Bookmarks retrieved successfully")
	}
}

// addBookmark is idempotent; bookmarking twice is not an error.
func (h bookmarkHandler) addBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())

		post, err := h.postRepo.Exists(r.Context(), chi.URLParam(r, "postId"))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		if err := h.bookmarkRepo.Add(r.Context(), session.UserID, post.ID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "bookmark", err))
			return
		}

		h.responder.WriteData(w, http.StatusCreated, map[string]any{"post_id": post.ID, "bookmarked": true}, "Post bookmarked")
	}
}

func (h bookmarkHandler) removeBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())

		post, err := h.postRepo.Exists(r.Context(), chi.URLParam(r, "postId"))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		if err := h.bookmarkRepo.Remove(r.Context(), session.UserID, post.ID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "bookmark", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, map[string]any{"post_id": post.ID, "bookmarked": false}, "Bookmark removed")
	}
}
