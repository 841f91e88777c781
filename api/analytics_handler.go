package api

import (
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/models"
)

const week = 7 * 24 * time.Hour

type analyticsHandler struct {
	responder   Responder
	commentRepo *database.CommentRepo
	postRepo    *database.PostRepo
	clock       clock.Clock
}

func newAnalyticsHandler(commentRepo *database.CommentRepo, postRepo *database.PostRepo, clk clock.Clock) analyticsHandler {
	logger := log.With().Str("handlerName", "analyticsHandler").Logger()

	return analyticsHandler{
		responder:   NewResponder(logger),
		commentRepo: commentRepo,
		postRepo:    postRepo,
		clock:       clk,
	}
}

// commentsOverview reports approved comment totals for the dashboard.
// weeklyGrowth counts the last seven days; isUp compares it with the seven
// days before.
// @Summary Comments overview
// @Tags Analytics
// @Produce json
// @Success 200 {object} envelope "{total, weeklyGrowth, isUp}"
// @Router /api/analytics/overview/comments [get]
func (h analyticsHandler) commentsOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := h.clock.Now().UTC()

		total, err := h.commentRepo.CountApproved(ctx, time.Time{}, time.Time{})
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("count", "comments", err))
			return
		}
		thisWeek, err := h.commentRepo.CountApproved(ctx, now.Add(-week), now)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("count", "comments", err))
			return
		}
		lastWeek, err := h.commentRepo.CountApproved(ctx, now.Add(-2*week), now.Add(-week))
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("count", "comments", err))
			return
		}

		h.responder.WriteData(w, http.StatusOK, commentsOverview{
			Total:        total,
			WeeklyGrowth: thisWeek,
			IsUp:         thisWeek > lastWeek,
		}, "Comments overview retrieved successfully")
	}
}

func (h analyticsHandler) postsOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := h.postRepo.CountByStatus(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("count", "posts", err))
			return
		}

		overview := postsOverview{
			Published: counts[models.PostStatusPublished],
			Drafts:    counts[models.PostStatusDraft],
			Scheduled: counts[models.PostStatusScheduled],
		}
		overview.Total = overview.Published + overview.Drafts + overview.Scheduled

		h.responder.WriteData(w, http.StatusOK, overview, "Posts overview retrieved successfully")
	}
}
