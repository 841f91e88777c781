package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
	"github.com/rpupo63/blog-cms-backend/services"
)

type taxonomyHandler struct {
	responder    Responder
	categoryRepo *database.CategoryRepo
	tagRepo      *database.TagRepo
}

func newTaxonomyHandler(categoryRepo *database.CategoryRepo, tagRepo *database.TagRepo) taxonomyHandler {
	logger := log.With().Str("handlerName", "taxonomyHandler").Logger()

	return taxonomyHandler{
		responder:    NewResponder(logger),
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
	}
}

type taxonomyRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Slug        string  `json:"slug" validate:"max=100"`
	Description *string `json:"description" validate:"omitnil,max=500"`
}

// slug derives the stored slug from the request, preferring an explicit one.
func (req taxonomyRequest) slug() (string, error) {
	base := req.Slug
	if base == "" {
		base = req.Name
	}
	slug := services.Slugify(base)
	if slug == "" {
		return "", errs.NewInvalidFieldError("name", "must contain at least one letter or digit")
	}
	return slug, nil
}

func pageParams(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

// listCategories returns one page of categories ordered by name
// @Summary List categories
// @Tags Taxonomy
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} envelope "Categories with pagination"
// @Router /api/categories [get]
func (h taxonomyHandler) listCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := pageParams(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		categories, total, err := h.categoryRepo.List(r.Context(), page, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "categories", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       categories,
			Message:    "Categories retrieved successfully",
			Pagination: newPaginationClamped(page, limit, total),
		})
	}
}

func (h taxonomyHandler) createCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taxonomyRequest
		if err := decodeJSON(w, r, "category", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		slug, err := req.slug()
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category := models.Category{Name: req.Name, Slug: slug, Description: req.Description}
		if err := h.categoryRepo.Create(r.Context(), &category); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "category", err))
			return
		}

		h.responder.WriteData(w, http.StatusCreated, category, "Category created successfully")
	}
}

func (h taxonomyHandler) listTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, err := pageParams(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tags, total, err := h.tagRepo.List(r.Context(), page, limit)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("list", "tags", err))
			return
		}

		h.responder.WriteEnvelope(w, http.StatusOK, envelope{
			Data:       tags,
			Message:    "Tags retrieved successfully",
			Pagination: newPaginationClamped(page, limit, total),
		})
	}
}

func (h taxonomyHandler) createTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taxonomyRequest
		if err := decodeJSON(w, r, "tag", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		slug, err := req.slug()
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tag := models.Tag{Name: req.Name, Slug: slug}
		if err := h.tagRepo.Create(r.Context(), &tag); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("create", "tag", err))
			return
		}

		h.responder.WriteData(w, http.StatusCreated, tag, "Tag created successfully")
	}
}
