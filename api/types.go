package api

import (
	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	authHandler       authHandler
	postHandler       postHandler
	roleHandler       roleHandler
	settingsHandler   settingsHandler
	analyticsHandler  analyticsHandler
	newsletterHandler newsletterHandler
	taxonomyHandler   taxonomyHandler
	authorHandler     authorHandler
	bookmarkHandler   bookmarkHandler
	commentHandler    commentHandler
}

// envelope is the body of every JSON response. Data is always present,
// null on failure.
type envelope struct {
	Data       any         `json:"data"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Field      string      `json:"field,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	LastUpdate int64       `json:"lastUpdate,omitempty"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func newPagination(page, limit int, total int64) *pagination {
	p := &pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

// postView is a post as returned by the API, with its tags flattened out
// of the join rows.
type postView struct {
	models.Post
	Tags []models.Tag `json:"tags"`
}

func newPostView(p models.Post) postView {
	return postView{Post: p, Tags: p.Tags()}
}

func newPostViews(posts []models.Post) []postView {
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, newPostView(p))
	}
	return views
}

func pageOf(p database.PostPage) *pagination {
	return newPagination(p.Page, p.Limit, p.Total)
}

// commentsOverview feeds the dashboard's comment widget.
type commentsOverview struct {
	Total        int64 `json:"total"`
	WeeklyGrowth int64 `json:"weeklyGrowth"`
	IsUp         bool  `json:"isUp"`
}

type postsOverview struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
	Scheduled int64 `json:"scheduled"`
}

type authorProfile struct {
	models.User
	PostCount int64 `json:"post_count"`
}

// newPaginationClamped reports page and limit as the repository applied
// them.
func newPaginationClamped(page, limit int, total int64) *pagination {
	offset, size := database.Paginate(page, limit)
	return newPagination(offset/size+1, size, total)
}
