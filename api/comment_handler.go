package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

type commentHandler struct {
	responder   Responder
	logger      zerolog.Logger
	commentRepo *database.CommentRepo
	postRepo    *database.PostRepo
}

func newCommentHandler(commentRepo *database.CommentRepo, postRepo *database.PostRepo) commentHandler {
	logger := log.With().Str("handlerName", "commentHandler").Logger()

	return commentHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

type createCommentRequest struct {
	AuthorName  string `json:"author_name" validate:"required,max=80"`
	AuthorEmail string `json:"author_email" validate:"omitempty,email,max=254"`
	Content     string `json:"content" validate:"required,max=5000"`
}

type moderateCommentRequest struct {
	Status models.CommentStatus `json:"status" validate:"required,oneof=approved pending"`
}

// publishedPost resolves the post in the URL, treating unpublished posts
// as missing.
func (h commentHandler) publishedPost(r *http.Request) (*models.Post, error) {
	post, err := h.postRepo.Exists(r.Context(), chi.URLParam(r, "slugOrId"))
	if err != nil {
		return nil, wrapDatabaseError("find", "post", err)
	}
	if post.Status != models.PostStatusPublished {
		return nil, errs.NewNotFound("Post")
	}
	return post, nil
}

func (h commentHandler) listComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.publishedPost(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comments, err := h.commentRepo.ListApproved(r.Context(), post.ID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "comments", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, comments, "Comments retrieved successfully")
	}
}

// createComment stores a comment awaiting moderation
// @Summary Comment on a post
// @Tags Comments
// @Accept json
// @Produce json
// @Param slugOrId path string true "Post slug or ID"
// @Param comment body createCommentRequest true "Comment"
// @Success 201 {object} envelope "Pending comment"
// @Failure 404 {object} envelope "Post not found"
// @Failure 429 {object} envelope "Too many requests"
// @Router /api/posts/{slugOrId}/comments [post]
func (h commentHandler) createComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.publishedPost(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req createCommentRequest
		if err := decodeJSON(w, r, "comment", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		comment := models.Comment{
			PostID:      post.ID,
			AuthorName:  strings.TrimSpace(req.AuthorName),
			AuthorEmail: strings.TrimSpace(req.AuthorEmail),
			Content:     req.Content,
			Status:      models.CommentStatusPending,
		}
		if err := h.commentRepo.Create(r.Context(), &comment); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "comment", err))
			return
		}

		h.responder.WriteData(w, http.StatusCreated, comment, "Comment submitted for moderation")
	}
}

func (h commentHandler) moderateComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "commentId"))
		if err != nil {
			h.responder.WriteError(w, errs.NewInvalidFieldError("commentId", "must be a UUID"))
			return
		}

		var req moderateCommentRequest
		if err := decodeJSON(w, r, "comment moderation", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.commentRepo.SetStatus(r.Context(), id, req.Status); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "comment", err))
			return
		}

		h.logger.Info().Str("commentId", id.String()).Str("status", string(req.Status)).Msg("comment moderated")
		h.responder.WriteData(w, http.StatusOK, map[string]any{"id": id, "status": req.Status}, "Comment updated successfully")
	}
}
