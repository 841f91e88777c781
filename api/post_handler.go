package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
	"github.com/rpupo63/blog-cms-backend/services"
)

type postHandler struct {
	responder Responder
	logger    zerolog.Logger
	postRepo  *database.PostRepo
	tagRepo   *database.TagRepo
	guard     permissionGuard
	clock     clock.Clock
}

func newPostHandler(postRepo *database.PostRepo, tagRepo *database.TagRepo, guard permissionGuard, clk clock.Clock) postHandler {
	logger := log.With().Str("handlerName", "postHandler").Logger()

	return postHandler{
		responder: NewResponder(logger),
		logger:    logger,
		postRepo:  postRepo,
		tagRepo:   tagRepo,
		guard:     guard,
		clock:     clk,
	}
}

type createPostRequest struct {
	Title           string      `json:"title" validate:"required,max=300"`
	Slug            string      `json:"slug" validate:"max=200"`
	Content         string      `json:"content"`
	Excerpt         *string     `json:"excerpt" validate:"omitnil,max=1000"`
	CategoryID      *uuid.UUID  `json:"category_id"`
	FeaturedImageID *uuid.UUID  `json:"featured_image_id"`
	Tags            []uuid.UUID `json:"tags"`
}

// updatePostRequest lists the fields a caller may change. Keys missing
// from the body are left alone, except scheduled_at which is cleared.
type updatePostRequest struct {
	Title           *string            `json:"title" validate:"omitnil,min=1,max=300"`
	Slug            *string            `json:"slug" validate:"omitnil,min=1,max=200"`
	Content         *string            `json:"content"`
	Excerpt         *string            `json:"excerpt" validate:"omitnil,max=1000"`
	Status          *models.PostStatus `json:"status" validate:"omitnil,oneof=draft published scheduled"`
	CategoryID      *uuid.UUID         `json:"category_id"`
	FeaturedImageID *uuid.UUID         `json:"featured_image_id"`
	ScheduledAt     *string            `json:"scheduled_at"`
	Tags            []uuid.UUID        `json:"tags"`
}

// getPost retrieves one post by slug or id with its relations
// @Summary Get post
// @Tags Posts
// @Produce json
// @Param slugOrId path string true "Post slug or ID"
// @Success 200 {object} envelope "Post with author, category, featured image and tags"
// @Failure 404 {object} envelope "Post not found"
// @Router /api/posts/{slugOrId} [get]
func (h postHandler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "slugOrId")

		post, err := h.postRepo.FindBySlugOrID(r.Context(), key)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		// Unpublished posts are only visible to roles that can read drafts.
		if post.Status != models.PostStatusPublished {
			if err := h.guard.allowed(r, models.PermPostsRead); err != nil {
				h.responder.WriteError(w, errs.NewNotFound("Post"))
				return
			}
		} else if err := h.postRepo.IncrementViews(r.Context(), post.ID); err != nil {
			h.logger.Warn().Err(err).Str("postId", post.ID.String()).Msg("failed to count view")
		}

		h.responder.WriteData(w, http.StatusOK, newPostView(*post), "Post retrieved successfully")
	}
}

// listPosts returns one page of posts
// @Summary List posts
// @Tags Posts
// @Produce json
// @Param status query string false "published (default), draft, scheduled or all"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sortBy query string false "created_at, published_at, recent or popular"
// @Param sortOrder query string false "asc or desc"
// @Param category query string false "Category slug or ID"
// @Param author query string false "Author username"
// @Param q query string false "Title search"
// @Success 200 {object} envelope "Posts with pagination"
// @Router /api/posts [get]
func (h postHandler) listPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := postQueryFromRequest(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if query.Status != string(models.PostStatusPublished) {
			if err := h.guard.allowed(r, models.PermPostsRead); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}

		page, err := h.postRepo.List(r.Context(), query)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "posts", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       newPostViews(page.Posts),
			Message:    "Posts retrieved successfully",
			Pagination: pageOf(page),
		})
	}
}

// statusParam reads the status filter of a listing, defaulting to published.
func statusParam(r *http.Request) (string, error) {
	status := r.URL.Query().Get("status")
	switch status {
	case "":
		return string(models.PostStatusPublished), nil
	case database.StatusAll:
		return status, nil
	}
	if !models.PostStatus(status).Valid() {
		return "", errs.NewInvalidFieldError("status", "must be one of draft published scheduled all")
	}
	return status, nil
}

func postQueryFromRequest(r *http.Request) (database.PostQuery, error) {
	q := r.URL.Query()

	status, err := statusParam(r)
	if err != nil {
		return database.PostQuery{}, err
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		return database.PostQuery{}, err
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		return database.PostQuery{}, err
	}

	return database.PostQuery{
		Status:    status,
		Category:  q.Get("category"),
		Author:    q.Get("author"),
		Search:    q.Get("q"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      page,
		Limit:     limit,
	}, nil
}

// createPost creates a draft owned by the caller
// @Summary Create post
// @Tags Posts
// @Accept json
// @Produce json
// @Param post body createPostRequest true "Post data"
// @Success 201 {object} envelope "Created post"
// @Failure 400 {object} envelope "Invalid post data"
// @Failure 403 {object} envelope "Missing posts:create"
// @Router /api/posts [post]
func (h postHandler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := ctxGetSession(r.Context())
		if session == nil {
			h.responder.WriteError(w, errs.NewMissingTokenError())
			return
		}

		var req createPostRequest
		if err := decodeJSON(w, r, "post", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if strings.TrimSpace(req.Title) == "" {
			h.responder.WriteError(w, errs.NewInvalidFieldError("title", "must not be blank"))
			return
		}

		base := req.Slug
		if base == "" {
			base = req.Title
		}
		base = services.Slugify(base)
		if base == "" {
			h.responder.WriteError(w, errs.NewInvalidFieldError("title", "must contain at least one letter or digit"))
			return
		}

		if err := h.checkTags(r, req.Tags); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		slug, err := h.postRepo.NextAvailableSlug(r.Context(), base)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "post", err))
			return
		}

		post := models.Post{
			Slug:            slug,
			Title:           strings.TrimSpace(req.Title),
			Content:         req.Content,
			Excerpt:         req.Excerpt,
			Status:          models.PostStatusDraft,
			AuthorID:        session.UserID,
			CategoryID:      req.CategoryID,
			FeaturedImageID: req.FeaturedImageID,
		}
		err = h.postRepo.Create(r.Context(), &post, req.Tags)
		if errs.IsAlreadyExists(err) {
			// The slug was taken between the lookup and the insert.
			if post.Slug, err = h.postRepo.NextAvailableSlug(r.Context(), base); err == nil {
				err = h.postRepo.Create(r.Context(), &post, req.Tags)
			}
		}
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "post", err))
			return
		}

		created, err := h.postRepo.FindBySlugOrID(r.Context(), post.ID.String())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		h.logger.Info().Str("postId", post.ID.String()).Str("slug", post.Slug).Msg("post created")
		h.responder.WriteData(w, http.StatusCreated, newPostView(*created), "Post created successfully")
	}
}

// updatePost applies a partial update and returns the re-fetched post.
// Existence check, write and re-fetch are separate round trips; concurrent
// editors resolve as last write wins.
// @Summary Update post
// @Tags Posts
// @Accept json
// @Produce json
// @Param slugOrId path string true "Post slug or ID"
// @Param post body updatePostRequest true "Fields to change"
// @Success 200 {object} envelope "Updated post with lastUpdate"
// @Failure 400 {object} envelope "Invalid field"
// @Failure 403 {object} envelope "Missing posts:edit"
// @Failure 404 {object} envelope "Post not found"
// @Router /api/posts/{slugOrId} [put]
func (h postHandler) updatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, err := h.postRepo.Exists(r.Context(), chi.URLParam(r, "slugOrId"))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		var req updatePostRequest
		raw, err := decodeJSONFields(w, r, "post", &req)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		fields, err := h.updateFields(r, existing, req, raw)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		_, replaceTags := raw["tags"]
		if replaceTags {
			if err := h.checkTags(r, req.Tags); err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}

		if err := h.postRepo.UpdateFields(r.Context(), existing.ID, fields); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "post", err))
			return
		}

		if replaceTags {
			if err := h.postRepo.ReplaceTags(r.Context(), existing.ID, req.Tags); err != nil {
				h.responder.WriteError(w, wrapDatabaseError("update", "post tags", err))
				return
			}
		}

		updated, err := h.postRepo.FindBySlugOrID(r.Context(), existing.ID.String())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       newPostView(*updated),
			Message:    "Post updated successfully",
			LastUpdate: h.clock.Now().UnixMilli(),
		})
	}
}

// updateFields maps the whitelisted request members to column values.
func (h postHandler) updateFields(r *http.Request, existing *models.Post, req updatePostRequest, raw map[string]json.RawMessage) (map[string]any, error) {
	fields := make(map[string]any)
	present := func(key string) bool {
		_, ok := raw[key]
		return ok
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errs.NewInvalidFieldError("title", "must not be blank")
		}
		fields["title"] = title
	}
	if req.Slug != nil {
		slug := services.Slugify(*req.Slug)
		if slug == "" {
			return nil, errs.NewInvalidFieldError("slug", "must contain at least one letter or digit")
		}
		fields["slug"] = slug
	}
	if req.Content != nil {
		fields["content"] = *req.Content
	}
	if present("excerpt") {
		fields["excerpt"] = nullable(req.Excerpt)
	}
	if present("category_id") {
		fields["category_id"] = nullable(req.CategoryID)
	}
	if present("featured_image_id") {
		fields["featured_image_id"] = nullable(req.FeaturedImageID)
	}

	scheduledAt, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	fields["scheduled_at"] = nullable(scheduledAt)

	status := existing.Status
	if req.Status != nil {
		status = *req.Status
		fields["status"] = status
	}
	if req.Status != nil && status == models.PostStatusScheduled && scheduledAt == nil {
		return nil, errs.NewBadRequestErrorWithField("scheduled_at is required", "scheduled_at", "scheduled posts need a publish time")
	}

	if req.Status != nil && status != existing.Status {
		switch status {
		case models.PostStatusPublished:
			if err := h.guard.allowed(r, models.PermPostsPublish); err != nil {
				return nil, err
			}
			if existing.PublishedAt == nil {
				fields["published_at"] = h.clock.Now().UTC()
			}
		case models.PostStatusScheduled:
			if err := h.guard.allowed(r, models.PermPostsSchedule); err != nil {
				return nil, err
			}
		}
	}
	return fields, nil
}

func parseScheduledAt(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		return nil, errs.NewInvalidFieldError("scheduled_at", "must be an RFC 3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

// nullable turns a nil pointer into an untyped nil so the column is set
// to NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// checkTags rejects tag ids that do not exist.
func (h postHandler) checkTags(r *http.Request, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	tags, err := h.tagRepo.FindByIDs(r.Context(), ids)
	if err != nil {
		return wrapDatabaseError("find", "tags", err)
	}
	if len(tags) != len(unique) {
		return errs.NewInvalidFieldError("tags", "references an unknown tag")
	}
	return nil
}

func (h postHandler) deletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, err := h.postRepo.Exists(r.Context(), chi.URLParam(r, "slugOrId"))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "post", err))
			return
		}

		if err := h.postRepo.Delete(r.Context(), existing.ID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "post", err))
			return
		}

		h.logger.Info().Str("postId", existing.ID.String()).Msg("post deleted")
		h.responder.WriteData(w, http.StatusOK, nil, "Post deleted successfully")
	}
}
